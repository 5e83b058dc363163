package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeAddress() Address {
	return Address{
		Street:  " 12 Market St ",
		City:    "Springfield",
		State:   "IL",
		Country: "US",
		ZipCode: "62701",
		Phone:   "+1-555-0100",
	}
}

func TestAddressMissingFields(t *testing.T) {
	addr := completeAddress()
	assert.True(t, addr.IsComplete())

	addr.City = "   "
	addr.Phone = ""
	assert.False(t, addr.IsComplete())
	assert.Equal(t, []string{"city", "phone"}, addr.MissingFields())
}

func TestAddressValueScanRoundTrip(t *testing.T) {
	value, err := completeAddress().Value()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, "12 Market St", decoded.Street)
	assert.Equal(t, "62701", decoded.ZipCode)

	var fromBytes Address
	require.NoError(t, fromBytes.Scan([]byte(value.(string))))
	assert.Equal(t, decoded, fromBytes)
}

func TestAddressValueRejectsIncomplete(t *testing.T) {
	_, err := Address{Street: "x"}.Value()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "city")
}

func TestAddressScanRejectsUnknownTypes(t *testing.T) {
	var addr Address
	require.Error(t, addr.Scan(42))
	require.NoError(t, addr.Scan(nil))
	assert.Equal(t, Address{}, addr)
}
