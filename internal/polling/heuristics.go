package polling

import (
	"strconv"
	"strings"
)

// virtualMACPrefixes maps a known virtualization/container OUI prefix
// (leading hex digits, uppercase, no separators: six for an OUI, four for
// Docker's 02:42 range) to its vendor label.
var virtualMACPrefixes = map[string]string{
	"005056": "VMware",
	"000C29": "VMware",
	"000569": "VMware",
	"00155D": "Microsoft Hyper-V",
	"0242":   "Docker",
	"080027": "VirtualBox",
	"00163E": "Xen",
	"DEADBE": "Test/Virtual",
	"525400": "QEMU/KVM",
}

// MACClassification is the result of classifying a connected device's
// MAC address as physical, virtual, or a privacy-randomized address.
type MACClassification struct {
	Virtual       bool
	VirtualReason string
	Randomized    bool
}

// ClassifyMAC inspects mac's locally-administered bit and known OUI
// prefixes to flag virtual machine/container interfaces and
// privacy-randomized addresses (iOS/Android/Windows), using vendor as a
// secondary signal once the locally-administered bit is set.
func ClassifyMAC(mac, vendor string) MACClassification {
	clean := strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(mac))
	if len(clean) < 2 {
		return MACClassification{}
	}

	for prefix, vmType := range virtualMACPrefixes {
		if strings.HasPrefix(clean, prefix) {
			return MACClassification{Virtual: true, VirtualReason: vmType + " virtual MAC"}
		}
	}

	firstOctet, err := strconv.ParseUint(clean[:2], 16, 8)
	if err != nil {
		return MACClassification{}
	}
	locallyAdministered := firstOctet&0x02 != 0
	if !locallyAdministered {
		return MACClassification{}
	}

	switch {
	case strings.Contains(vendor, "Apple"):
		return MACClassification{Virtual: true, Randomized: true, VirtualReason: "Apple device with randomized MAC (Privacy)"}
	case containsAny(vendor, "Samsung", "Google", "Xiaomi", "OnePlus"):
		return MACClassification{Virtual: true, Randomized: true, VirtualReason: "Android device with randomized MAC (Privacy)"}
	case strings.Contains(vendor, "Microsoft"):
		return MACClassification{Virtual: true, Randomized: true, VirtualReason: "Windows device with randomized MAC (Privacy)"}
	default:
		return MACClassification{Virtual: true, Randomized: true, VirtualReason: "Randomised MAC address"}
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
