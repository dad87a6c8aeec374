package devices

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// USBInfo describes the USB adapter behind a serial device node.
type USBInfo struct {
	Name         string
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

func (u USBInfo) String() string {
	return fmt.Sprintf("%s (usb %s:%s serial=%q product=%q)", u.Name, u.VID, u.PID, u.SerialNumber, u.Product)
}

// LookupUSB reports the USB identity of the serial port at path, if the OS
// enumerator knows it. ok is false for non-USB ports and unknown paths.
func LookupUSB(path string) (USBInfo, bool, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return USBInfo{}, false, fmt.Errorf("enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		if p.Name != path || !p.IsUSB {
			continue
		}
		return USBInfo{
			Name:         p.Name,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		}, true, nil
	}
	return USBInfo{}, false, nil
}
