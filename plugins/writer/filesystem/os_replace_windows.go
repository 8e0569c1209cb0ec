//go:build windows

package filesystem

import (
	"os"

	"golang.org/x/sys/windows"
)

// osReplace 覆盖已存在的页面；目标被占用时 MoveFileEx 直接失败。
func osReplace(tmpPath, dest string) error {
	from, err := windows.UTF16PtrFromString(tmpPath)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(dest)
	if err != nil {
		return err
	}
	if err := windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH); err != nil {
		return &os.LinkError{Op: "replace", Old: tmpPath, New: dest, Err: err}
	}
	return nil
}

func syncDir(string) error { return nil }
