//go:build linux

package watch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// NetlinkSource subscribes to kernel uevents on the udev broadcast group
// and notifies on USB device add and remove actions.
type NetlinkSource struct{}

func (s *NetlinkSource) Name() string { return "netlink" }

func (s *NetlinkSource) Watch(ctx context.Context, notify chan<- struct{}) error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return fmt.Errorf("opening uevent socket: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		return fmt.Errorf("binding uevent socket: %w", err)
	}
	// A receive timeout lets the loop notice context cancellation.
	tv := unix.Timeval{Usec: 500_000}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("configuring uevent socket: %w", err)
	}

	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return fmt.Errorf("reading uevent: %w", err)
		}
		if n <= 0 || !usbDeviceEvent(buf[:n]) {
			continue
		}
		select {
		case notify <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// A notification is already pending; this burst is coalesced.
		}
	}
}

func defaultSource(time.Duration) Source { return &NetlinkSource{} }
