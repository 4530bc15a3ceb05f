package protocol

// ProcessInfo describes one running process, as returned by Procs.
type ProcessInfo struct {
	Name       string `json:"name"`
	Pid        int32  `json:"pid"`
	MemBytes   uint64 `json:"membytes"`
	Username   string `json:"username"`
	ID         int32  `json:"id"`
	CPUPercent string `json:"cpu_percent"`
}

// DiskInfo describes one mounted filesystem, as returned as part of a
// check-in Disks snapshot.
type DiskInfo struct {
	Device  string `json:"device"`
	Fstype  string `json:"fstype"`
	Total   string `json:"total"`
	Used    string `json:"used"`
	Free    string `json:"free"`
	Percent string `json:"percent"`
}

// WinServiceInfo describes one Windows service, as returned by WinServices
// and WinSvcDetail.
type WinServiceInfo struct {
	Name              string `json:"name"`
	Status            string `json:"status"`
	DisplayName       string `json:"display_name"`
	BinPath           string `json:"bin_path"`
	Description       string `json:"description"`
	Username          string `json:"username"`
	Pid               uint32 `json:"pid"`
	StartType         string `json:"start_type"`
	DelayedAutoStart  bool   `json:"delayed_auto_start"`
}

// WinSoftwareInfo describes one installed-software registry entry, as
// returned by SoftwareList.
type WinSoftwareInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Publisher   string `json:"publisher"`
	InstallDate string `json:"install_date"`
	Size        string `json:"size"`
	Source      string `json:"source"`
	Location    string `json:"location"`
	Uninstall   string `json:"uninstall"`
}

// WinUpdateInfo describes one Windows Update package, as returned by
// GetWinUpdates.
type WinUpdateInfo struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Categories      []string `json:"categories"`
	CategoryIDs     []string `json:"category_ids"`
	KBArticleIDs    []string `json:"kb_article_ids"`
	MoreInfoURLs    []string `json:"more_info_urls"`
	SupportURL      string   `json:"support_url"`
	GUID            string   `json:"guid"`
	RevisionNumber  int32    `json:"revision_number"`
	Severity        string   `json:"severity"`
	Installed       bool     `json:"installed"`
	Downloaded      bool     `json:"downloaded"`
}
