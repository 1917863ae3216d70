package droneid

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// testPayload mirrors the wire layout for building fixtures.
type testPayload struct {
	pktLen, unk, version   uint8
	sequenceNumber         uint16
	stateInfo              uint16
	serialNumber           string
	longitude, latitude    int32
	altitude, height       int16
	vNorth, vEast, vUp     int16
	d1Angle                int16
	gpsTime                uint64
	appLat, appLon         int32
	lonHome, latHome       int32
	deviceType, uuidLen    uint8
	uuid                   string
}

func (p testPayload) marshal() []byte {
	b := make([]byte, PayloadLength)
	b[0] = p.pktLen
	b[1] = p.unk
	b[2] = p.version
	binary.LittleEndian.PutUint16(b[3:], p.sequenceNumber)
	binary.LittleEndian.PutUint16(b[5:], p.stateInfo)
	copy(b[7:23], p.serialNumber)
	binary.LittleEndian.PutUint32(b[23:], uint32(p.longitude))
	binary.LittleEndian.PutUint32(b[27:], uint32(p.latitude))
	binary.LittleEndian.PutUint16(b[31:], uint16(p.altitude))
	binary.LittleEndian.PutUint16(b[33:], uint16(p.height))
	binary.LittleEndian.PutUint16(b[35:], uint16(p.vNorth))
	binary.LittleEndian.PutUint16(b[37:], uint16(p.vEast))
	binary.LittleEndian.PutUint16(b[39:], uint16(p.vUp))
	binary.LittleEndian.PutUint16(b[41:], uint16(p.d1Angle))
	binary.LittleEndian.PutUint64(b[43:], p.gpsTime)
	binary.LittleEndian.PutUint32(b[51:], uint32(p.appLat))
	binary.LittleEndian.PutUint32(b[55:], uint32(p.appLon))
	binary.LittleEndian.PutUint32(b[59:], uint32(p.lonHome))
	binary.LittleEndian.PutUint32(b[63:], uint32(p.latHome))
	b[67] = p.deviceType
	b[68] = p.uuidLen
	copy(b[69:89], p.uuid)
	return b
}

// appendCRC turns an 89-byte payload into a complete frame.
func appendCRC(payload []byte) RawFrame {
	f := make([]byte, FrameLength)
	copy(f, payload)
	binary.LittleEndian.PutUint16(f[PayloadLength:], frameCRC.Checksum(payload))
	return RawFrame(f)
}

func TestCRCRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), PayloadLength, PayloadLength).Draw(t, "payload")

		f := appendCRC(payload)
		require.Len(t, []byte(f), FrameLength)
		assert.True(t, f.CheckCRC())
		assert.Equal(t, f.ComputeCRC(), f.PacketCRC())
	})
}

func TestCRCDetectsSingleBitFlip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), PayloadLength, PayloadLength).Draw(t, "payload")
		pos := rapid.IntRange(0, PayloadLength-1).Draw(t, "pos")
		bit := rapid.IntRange(0, 7).Draw(t, "bit")

		f := appendCRC(payload)
		f[pos] ^= 1 << bit
		assert.False(t, f.CheckCRC())
	})
}

func TestNewRawFrameLength(t *testing.T) {
	_, err := NewRawFrame(make([]byte, FrameLength-1))
	assert.ErrorIs(t, err, ErrShortFrame)

	// Longer buffers are truncated to the frame.
	f, err := NewRawFrame(make([]byte, 176))
	require.NoError(t, err)
	assert.Len(t, []byte(f), FrameLength)
}

func TestParseFrameExtractsFields(t *testing.T) {
	p := testPayload{
		pktLen:         91,
		version:        1,
		sequenceNumber: 100,
		serialNumber:   "TEST_SERIAL",
		longitude:      1745330,
		latitude:       -1745330,
		altitude:       328,
		height:         164,
		vNorth:         10,
		vEast:          20,
		vUp:            5,
		gpsTime:        1234567890,
		appLat:         42,
		appLon:         -42,
		lonHome:        7,
		latHome:        -7,
		deviceType:     68,
		uuidLen:        9,
		uuid:           "UUID_TEST",
	}

	rec, err := ParseFrame(appendCRC(p.marshal()))
	require.NoError(t, err)

	assert.Equal(t, uint8(91), rec.PktLen)
	assert.Equal(t, uint8(1), rec.Version)
	assert.Equal(t, uint16(100), rec.SequenceNumber)
	assert.Equal(t, "TEST_SERIAL", rec.SerialNumber)
	assert.InDelta(t, 1745330/174533.0, rec.Longitude, 1e-10)
	assert.InDelta(t, -1745330/174533.0, rec.Latitude, 1e-10)
	assert.Equal(t, math.Round(328/3.281*100)/100, rec.Altitude)
	assert.Equal(t, math.Round(164/3.281*100)/100, rec.Height)
	assert.Equal(t, int16(10), rec.VNorth)
	assert.Equal(t, int16(20), rec.VEast)
	assert.Equal(t, int16(5), rec.VUp)
	assert.Equal(t, uint64(1234567890), rec.GPSTime)
	assert.Equal(t, int32(42), rec.AppLat)
	assert.Equal(t, int32(-42), rec.AppLon)
	assert.Equal(t, int32(7), rec.LongitudeHome)
	assert.Equal(t, int32(-7), rec.LatitudeHome)
	assert.Equal(t, uint8(68), rec.DeviceType)
	assert.Equal(t, "UUID_TEST", rec.UUID)
	assert.True(t, rec.CRCValid)
}

func TestParseFrameGPSScaling(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lon := rapid.Int32().Draw(t, "lon")
		lat := rapid.Int32().Draw(t, "lat")

		p := testPayload{pktLen: 91, longitude: lon, latitude: lat}
		rec, err := ParseFrame(appendCRC(p.marshal()))
		require.NoError(t, err)

		assert.InDelta(t, float64(lon)/174533.0, rec.Longitude, 1e-10)
		assert.InDelta(t, float64(lat)/174533.0, rec.Latitude, 1e-10)
	})
}

func TestParseFrameAltitudeScaling(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		alt := rapid.Int16().Draw(t, "alt")
		height := rapid.Int16().Draw(t, "height")

		p := testPayload{pktLen: 91, altitude: alt, height: height}
		rec, err := ParseFrame(appendCRC(p.marshal()))
		require.NoError(t, err)

		assert.Equal(t, math.Round(float64(alt)/3.281*100)/100, rec.Altitude)
		assert.Equal(t, math.Round(float64(height)/3.281*100)/100, rec.Height)
	})
}

func TestParseFrameCorruptedCRC(t *testing.T) {
	p := testPayload{pktLen: 91, version: 1, serialNumber: "TEST_SERIAL", uuid: "UUID_TEST"}
	f := appendCRC(p.marshal())
	f[2] = 99 // corrupt version after the CRC was computed

	rec, err := ParseFrame(f)
	require.NoError(t, err)
	assert.False(t, rec.CRCValid)
	assert.NotEqual(t, rec.CRCPacket, rec.CRCCalculated)
}

func TestParseFrameBadText(t *testing.T) {
	p := testPayload{pktLen: 91}
	payload := p.marshal()
	payload[7] = 0xff // invalid leading byte in serial_number

	_, err := ParseFrame(appendCRC(payload))
	assert.ErrorIs(t, err, ErrBadText)
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := testPayload{
			pktLen:         rapid.Uint8().Draw(t, "pktLen"),
			unk:            rapid.Uint8().Draw(t, "unk"),
			version:        rapid.Uint8().Draw(t, "version"),
			sequenceNumber: rapid.Uint16().Draw(t, "seq"),
			stateInfo:      rapid.Uint16().Draw(t, "state"),
			serialNumber:   rapid.StringMatching(`[ -~]{0,16}`).Draw(t, "serial"),
			longitude:      rapid.Int32().Draw(t, "lon"),
			latitude:       rapid.Int32().Draw(t, "lat"),
			altitude:       rapid.Int16().Draw(t, "alt"),
			height:         rapid.Int16().Draw(t, "height"),
			vNorth:         rapid.Int16().Draw(t, "vn"),
			vEast:          rapid.Int16().Draw(t, "ve"),
			vUp:            rapid.Int16().Draw(t, "vu"),
			d1Angle:        rapid.Int16().Draw(t, "d1"),
			gpsTime:        rapid.Uint64().Draw(t, "gps"),
			appLat:         rapid.Int32().Draw(t, "appLat"),
			appLon:         rapid.Int32().Draw(t, "appLon"),
			lonHome:        rapid.Int32().Draw(t, "lonHome"),
			latHome:        rapid.Int32().Draw(t, "latHome"),
			deviceType:     rapid.Uint8().Draw(t, "deviceType"),
			uuidLen:        rapid.Uint8().Draw(t, "uuidLen"),
			uuid:           rapid.StringMatching(`[ -~]{0,20}`).Draw(t, "uuid"),
		}

		// Text fields are NUL-padded on the wire, so the generated
		// values stay printable ASCII to keep the trim reversible.
		frame := appendCRC(p.marshal())

		rec, err := ParseFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, []byte(frame), []byte(EncodeFrame(rec)))
	})
}
