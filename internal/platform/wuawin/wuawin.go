//go:build windows

// Package wuawin wraps the COM Windows Update Agent object to list and
// install OS updates. Both operations are serialized by a process-wide
// try-lock: a concurrent caller gets ContendedUpdateOp immediately rather
// than blocking.
package wuawin

import (
	"sync"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/hostprobe"
	"github.com/kandev/ironhive/internal/protocol"
)

const updateSearchCriteria = "IsInstalled=1 or IsInstalled=0 and Type='Software' and IsHidden=0"

// Agent serializes access to the Windows Update Agent COM object.
type Agent struct {
	mu sync.Mutex
}

// New returns an Agent ready for use.
func New() *Agent {
	return &Agent{}
}

// GetWinUpdates lists updates matching the fixed search criteria. On
// contention with an in-flight GetWinUpdates/InstallWinUpdates call it
// returns ContendedUpdateOp without blocking.
func (a *Agent) GetWinUpdates() ([]protocol.WinUpdateInfo, error) {
	if !a.mu.TryLock() {
		return nil, apperr.ContendedUpdateOp()
	}
	defer a.mu.Unlock()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return nil, apperr.WindowsError(err)
	}
	defer ole.CoUninitialize()

	session, err := oleutil.CreateObject("Microsoft.Update.Session")
	if err != nil {
		return nil, apperr.WindowsError(err)
	}
	defer session.Release()

	sessionDisp, err := session.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, apperr.WindowsError(err)
	}
	defer sessionDisp.Release()

	searcherRaw, err := oleutil.CallMethod(sessionDisp, "CreateUpdateSearcher")
	if err != nil {
		return nil, apperr.WindowsError(err)
	}
	searcher := searcherRaw.ToIDispatch()
	defer searcher.Release()

	resultRaw, err := oleutil.CallMethod(searcher, "Search", updateSearchCriteria)
	if err != nil {
		return nil, apperr.WmiError(err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	updatesRaw, err := oleutil.GetProperty(result, "Updates")
	if err != nil {
		return nil, apperr.WmiError(err)
	}
	updates := updatesRaw.ToIDispatch()
	defer updates.Release()

	countRaw, err := oleutil.GetProperty(updates, "Count")
	if err != nil {
		return nil, apperr.WmiError(err)
	}
	count := int(countRaw.Val)

	out := make([]protocol.WinUpdateInfo, 0, count)
	for i := 0; i < count; i++ {
		itemRaw, err := oleutil.CallMethod(updates, "Item", i)
		if err != nil {
			continue
		}
		item := itemRaw.ToIDispatch()
		info := readUpdateInfo(item)
		item.Release()
		out = append(out, info)
	}

	return out, nil
}

func readUpdateInfo(item *ole.IDispatch) protocol.WinUpdateInfo {
	getString := func(prop string) string {
		v, err := oleutil.GetProperty(item, prop)
		if err != nil {
			return ""
		}
		return v.ToString()
	}
	getBool := func(prop string) bool {
		v, err := oleutil.GetProperty(item, prop)
		if err != nil {
			return false
		}
		return v.Value() == true
	}

	identity, err := oleutil.GetProperty(item, "Identity")
	guid := ""
	revision := int32(0)
	if err == nil {
		identityDisp := identity.ToIDispatch()
		guid = getString2(identityDisp, "UpdateID")
		if rev, err := oleutil.GetProperty(identityDisp, "RevisionNumber"); err == nil {
			revision = int32(rev.Val)
		}
		identityDisp.Release()
	}

	return protocol.WinUpdateInfo{
		Title:          getString("Title"),
		Description:    getString("Description"),
		SupportURL:     getString("SupportUrl"),
		GUID:           guid,
		RevisionNumber: revision,
		Severity:       getString("MsrcSeverity"),
		Installed:      getBool("IsInstalled"),
		Downloaded:     getBool("IsDownloaded"),
	}
}

func getString2(disp *ole.IDispatch, prop string) string {
	v, err := oleutil.GetProperty(disp, prop)
	if err != nil {
		return ""
	}
	return v.ToString()
}

// InstallWinUpdates downloads and installs each named update GUID, sleeps
// 5s, then reports whether a reboot is now required. Serialized by the same
// try-lock as GetWinUpdates.
func (a *Agent) InstallWinUpdates(guids []string) (bool, error) {
	if !a.mu.TryLock() {
		return false, apperr.ContendedUpdateOp()
	}
	defer a.mu.Unlock()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return false, apperr.WindowsError(err)
	}
	defer ole.CoUninitialize()

	session, err := oleutil.CreateObject("Microsoft.Update.Session")
	if err != nil {
		return false, apperr.WindowsError(err)
	}
	defer session.Release()

	sessionDisp, err := session.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return false, apperr.WindowsError(err)
	}
	defer sessionDisp.Release()

	searcherRaw, err := oleutil.CallMethod(sessionDisp, "CreateUpdateSearcher")
	if err != nil {
		return false, apperr.WindowsError(err)
	}
	searcher := searcherRaw.ToIDispatch()
	defer searcher.Release()

	for _, guid := range guids {
		if err := installOne(sessionDisp, searcher, guid); err != nil {
			return false, err
		}
	}

	time.Sleep(5 * time.Second)
	return hostprobe.SystemRebootRequired()
}

func installOne(sessionDisp, searcher *ole.IDispatch, guid string) error {
	criteria := "UpdateID='" + guid + "'"
	resultRaw, err := oleutil.CallMethod(searcher, "Search", criteria)
	if err != nil {
		return apperr.WmiError(err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	updatesRaw, err := oleutil.GetProperty(result, "Updates")
	if err != nil {
		return apperr.WmiError(err)
	}
	updates := updatesRaw.ToIDispatch()
	defer updates.Release()

	countRaw, err := oleutil.GetProperty(updates, "Count")
	if err != nil {
		return apperr.WmiError(err)
	}
	if int(countRaw.Val) == 0 {
		return nil
	}

	itemRaw, err := oleutil.CallMethod(updates, "Item", 0)
	if err != nil {
		return apperr.WmiError(err)
	}
	item := itemRaw.ToIDispatch()
	defer item.Release()

	eulaAccepted, _ := oleutil.GetProperty(item, "EulaAccepted")
	if eulaAccepted.Value() != true {
		if _, err := oleutil.CallMethod(item, "AcceptEula"); err != nil {
			return apperr.WmiError(err)
		}
	}

	collection, err := oleutil.CreateObject("Microsoft.Update.UpdateColl")
	if err != nil {
		return apperr.WindowsError(err)
	}
	defer collection.Release()
	collectionDisp, err := collection.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return apperr.WindowsError(err)
	}
	defer collectionDisp.Release()
	if _, err := oleutil.CallMethod(collectionDisp, "Add", item); err != nil {
		return apperr.WmiError(err)
	}

	downloader, err := oleutil.CallMethod(sessionDisp, "CreateUpdateDownloader")
	if err != nil {
		return apperr.WindowsError(err)
	}
	downloaderDisp := downloader.ToIDispatch()
	defer downloaderDisp.Release()
	if err := oleutil.PutProperty(downloaderDisp, "Updates", collectionDisp); err != nil {
		return apperr.WmiError(err)
	}
	if _, err := oleutil.CallMethod(downloaderDisp, "Download"); err != nil {
		return apperr.WmiError(err)
	}

	installer, err := oleutil.CallMethod(sessionDisp, "CreateUpdateInstaller")
	if err != nil {
		return apperr.WindowsError(err)
	}
	installerDisp := installer.ToIDispatch()
	defer installerDisp.Release()
	if err := oleutil.PutProperty(installerDisp, "Updates", collectionDisp); err != nil {
		return apperr.WmiError(err)
	}
	if _, err := oleutil.CallMethod(installerDisp, "Install"); err != nil {
		return apperr.WmiError(err)
	}

	return nil
}
