package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceIDIsDeterministic(t *testing.T) {
	a := DeviceID("192.168.1.1", "fw-1")
	b := DeviceID("192.168.1.1", "fw-1")
	assert.Equal(t, a, b)
}

func TestDeviceIDDiffersByName(t *testing.T) {
	a := DeviceID("192.168.1.1", "fw-1")
	b := DeviceID("192.168.1.1", "fw-2")
	assert.NotEqual(t, a, b)
}

func TestDeviceIDWithoutNameIsStableAcrossRuns(t *testing.T) {
	a := DeviceID("192.168.1.1", "")
	b := DeviceID("192.168.1.1", "")
	assert.Equal(t, a, b)
}

func TestCanonicalizeMACLowercases(t *testing.T) {
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", CanonicalizeMAC("AA:BB:cc:DD:ee:FF"))
}
