package transport

import (
	"fmt"

	"github.com/google/gousb"
)

// DongleInfo describes one DataLink dongle found on the local USB bus.
type DongleInfo struct {
	Bus     int
	Address int
	VID     gousb.ID
	PID     gousb.ID
}

// DiscoverDongles enumerates every USB device on the local bus matching the
// DataLink dongle's vendor/product id, without opening or claiming any of
// them. Unlike a network scan this never needs concurrency: libusb's device
// list walk is already a single fast local call.
func DiscoverDongles() ([]DongleInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []DongleInfo
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor == usbVendorID && desc.Product == usbProductID {
			found = append(found, DongleInfo{
				Bus:     desc.Bus,
				Address: desc.Address,
				VID:     desc.Vendor,
				PID:     desc.Product,
			})
		}
		return false // never actually open; OpenDevices only needs the predicate
	})
	if err != nil {
		return nil, fmt.Errorf("usb bus scan failed: %w", err)
	}
	for _, d := range devices {
		d.Close()
	}

	return found, nil
}

// IsDonglePresent reports whether at least one matching dongle is attached.
func IsDonglePresent() bool {
	dongles, err := DiscoverDongles()
	return err == nil && len(dongles) > 0
}
