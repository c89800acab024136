// Package sysfswatch detects out-of-band changes to small attribute files exposed
// by kernel drivers under /sys.
//
// # Why polling
//
// sysfs is not a real filesystem. Attribute files usually report a size of 4096
// bytes and their modification time does not move when the driver changes the
// value (for example when a keyboard shortcut cycles the backlight brightness).
// inotify does not fire for those changes either. The watcher therefore polls the
// tree on a fixed interval and compares content fingerprints (size, mtime and a
// 128-bit BLAKE2b digest of the full file content) instead of timestamps.
//
// # Usage
//
//	n := sysfswatch.New(logger, sysfswatch.WithName("driver"))
//	n.SetCallback(func() {
//		// runs on the poll goroutine; re-read the full state here
//	})
//	if err := n.Watch("/sys/devices/platform/tuxedo_keyboard", false); err != nil {
//		return err
//	}
//	defer n.Stop()
//
// # Self-writes
//
// A process that writes to the files it watches would see its own change on the
// next poll. Wrap such writes in a suppression scope:
//
//	err := sysfswatch.WithSuppressed(n, func() error {
//		return driver.Write(keyboard.RoleBrightness, "120")
//	})
//
// The scope disables delivery while the write runs and arms a one-shot ignore
// token that swallows the change once the next poll observes it.
package sysfswatch
