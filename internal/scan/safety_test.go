package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsScannableAllowsRFC1918(t *testing.T) {
	assert.True(t, IsScannable("192.168.1.10"))
	assert.True(t, IsScannable("10.0.0.1"))
	assert.True(t, IsScannable("172.16.5.5"))
}

func TestIsScannableRejectsPublicAddresses(t *testing.T) {
	assert.False(t, IsScannable("8.8.8.8"))
	assert.False(t, IsScannable("1.1.1.1"))
}

func TestIsScannableRejectsInvalidInput(t *testing.T) {
	assert.False(t, IsScannable("not-an-ip"))
	assert.False(t, IsScannable(""))
}
