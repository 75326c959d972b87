package gpu

import (
	"os"
	"path/filepath"
	"strings"
)

// PCI class prefixes (class+subclass) of display and 3D controllers.
const (
	pciClassVGA = "0x0300"
	pciClass3D  = "0x0302" // compute cards such as Tesla report as 3D controllers
)

const pciVendorNVIDIA = "0x10de"

// HasNVIDIADevice reports whether sysfs under root lists an NVIDIA display or
// 3D controller. An empty root means "/". Hosts without sysfs report false.
//
// The result is advisory: building a CUDA-enabled extension on a machine
// without a GPU is legitimate, so callers only warn on false.
func HasNVIDIADevice(root string) bool {
	if root == "" {
		root = "/"
	}
	classFiles, err := filepath.Glob(filepath.Join(root, "sys", "bus", "pci", "devices", "*", "class"))
	if err != nil {
		return false
	}

	for _, classFile := range classFiles {
		class, err := os.ReadFile(classFile)
		if err != nil || !isDisplayController(strings.TrimSpace(string(class))) {
			continue
		}
		vendor, err := os.ReadFile(filepath.Join(filepath.Dir(classFile), "vendor"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(vendor)) == pciVendorNVIDIA {
			return true
		}
	}
	return false
}

// isDisplayController checks the top 16 bits of a "0xCCSSPP" class code.
func isDisplayController(class string) bool {
	if len(class) < 6 {
		return false
	}
	prefix := class[:6]
	return prefix == pciClassVGA || prefix == pciClass3D
}
