package systemd

import "github.com/coreos/go-systemd/v22/daemon"

// NotifyReady tells the service manager that startup finished. It reports
// false without error when not running under systemd.
func NotifyReady() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyReady)
}

// NotifyStopping tells the service manager that shutdown began.
func NotifyStopping() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyStopping)
}
