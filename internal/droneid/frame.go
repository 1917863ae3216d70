package droneid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/skywatch/droneid/internal/crc"
)

const (
	// FrameLength is the full frame size: payload plus trailing CRC-16.
	FrameLength = 91

	// PayloadLength is the CRC-covered portion of the frame.
	PayloadLength = 89

	serialNumberLength = 16
	uuidLength         = 20

	// gpsScale converts the packed int32 latitude/longitude to decimal
	// degrees.
	gpsScale = 174533.0

	// feetPerMeter converts the packed altitude and height fields, which
	// are transmitted in feet, to meters.
	feetPerMeter = 3.281
)

// frameCRC is the link-layer CRC-16: reflected, polynomial 0x11021 in
// normal form, initial value 0x3692, no final xor.
var frameCRC = crc.New("DUML", 0x3692, 0x1021)

var (
	ErrShortFrame = errors.New("droneid: frame shorter than 91 bytes")
	ErrBadText    = errors.New("droneid: serial or uuid field is not valid text")
)

// RawFrame is a complete 91-byte DroneID frame: an 89-byte payload
// followed by a little-endian CRC-16 over the payload.
type RawFrame []byte

// NewRawFrame validates the buffer length and returns the leading 91
// bytes as a frame. The input may be longer; trailing bytes are ignored.
func NewRawFrame(b []byte) (RawFrame, error) {
	if len(b) < FrameLength {
		return nil, fmt.Errorf("%w: have %d", ErrShortFrame, len(b))
	}
	return RawFrame(b[:FrameLength]), nil
}

// PacketCRC returns the CRC embedded in the trailing two bytes.
func (f RawFrame) PacketCRC() uint16 {
	return binary.LittleEndian.Uint16(f[PayloadLength:])
}

// ComputeCRC recomputes the CRC over the 89-byte payload.
func (f RawFrame) ComputeCRC() uint16 {
	return frameCRC.Checksum(f[:PayloadLength])
}

// CheckCRC reports whether the embedded CRC matches the payload. It never
// fails on arbitrary input.
func (f RawFrame) CheckCRC() bool {
	return f.PacketCRC() == f.ComputeCRC()
}

// TelemetryRecord is the typed decode of a DroneID frame. GPS coordinates
// are in decimal degrees, altitude and height in meters rounded to two
// decimals; the remaining fields carry the raw wire values.
type TelemetryRecord struct {
	PktLen         uint8
	Unk            uint8
	Version        uint8
	SequenceNumber uint16
	StateInfo      uint16
	SerialNumber   string
	Longitude      float64
	Latitude       float64
	Altitude       float64
	Height         float64
	VNorth         int16
	VEast          int16
	VUp            int16
	D1Angle        int16
	GPSTime        uint64
	AppLat         int32
	AppLon         int32
	LongitudeHome  int32
	LatitudeHome   int32
	DeviceType     uint8
	UUIDLen        uint8
	UUID           string

	CRCValid      bool
	CRCPacket     uint16
	CRCCalculated uint16
}

// ParseFrame decodes the fixed-layout payload and verifies the CRC. The
// only decode failure on a size-valid frame is a serial or uuid field
// that does not hold valid text.
func ParseFrame(f RawFrame) (*TelemetryRecord, error) {
	serial, err := textField(f[7:23])
	if err != nil {
		return nil, fmt.Errorf("serial_number: %w", err)
	}
	uuid, err := textField(f[69:89])
	if err != nil {
		return nil, fmt.Errorf("uuid: %w", err)
	}

	r := TelemetryRecord{
		PktLen:         f[0],
		Unk:            f[1],
		Version:        f[2],
		SequenceNumber: binary.LittleEndian.Uint16(f[3:5]),
		StateInfo:      binary.LittleEndian.Uint16(f[5:7]),
		SerialNumber:   serial,
		Longitude:      float64(int32(binary.LittleEndian.Uint32(f[23:27]))) / gpsScale,
		Latitude:       float64(int32(binary.LittleEndian.Uint32(f[27:31]))) / gpsScale,
		Altitude:       scaleAltitude(int16(binary.LittleEndian.Uint16(f[31:33]))),
		Height:         scaleAltitude(int16(binary.LittleEndian.Uint16(f[33:35]))),
		VNorth:         int16(binary.LittleEndian.Uint16(f[35:37])),
		VEast:          int16(binary.LittleEndian.Uint16(f[37:39])),
		VUp:            int16(binary.LittleEndian.Uint16(f[39:41])),
		D1Angle:        int16(binary.LittleEndian.Uint16(f[41:43])),
		GPSTime:        binary.LittleEndian.Uint64(f[43:51]),
		AppLat:         int32(binary.LittleEndian.Uint32(f[51:55])),
		AppLon:         int32(binary.LittleEndian.Uint32(f[55:59])),
		LongitudeHome:  int32(binary.LittleEndian.Uint32(f[59:63])),
		LatitudeHome:   int32(binary.LittleEndian.Uint32(f[63:67])),
		DeviceType:     f[67],
		UUIDLen:        f[68],
		UUID:           uuid,
		CRCPacket:      f.PacketCRC(),
		CRCCalculated:  f.ComputeCRC(),
	}
	r.CRCValid = r.CRCPacket == r.CRCCalculated

	return &r, nil
}

// EncodeFrame packs a record back into wire form with a freshly computed
// CRC. Serial and uuid are NUL-padded to their field widths; longer
// values are truncated. Inverse of ParseFrame up to the rounding the
// altitude and coordinate scaling applies.
func EncodeFrame(r *TelemetryRecord) RawFrame {
	f := make(RawFrame, FrameLength)

	f[0] = r.PktLen
	f[1] = r.Unk
	f[2] = r.Version
	binary.LittleEndian.PutUint16(f[3:5], r.SequenceNumber)
	binary.LittleEndian.PutUint16(f[5:7], r.StateInfo)
	copy(f[7:23], r.SerialNumber)
	binary.LittleEndian.PutUint32(f[23:27], uint32(int32(math.Round(r.Longitude*gpsScale))))
	binary.LittleEndian.PutUint32(f[27:31], uint32(int32(math.Round(r.Latitude*gpsScale))))
	binary.LittleEndian.PutUint16(f[31:33], uint16(unscaleAltitude(r.Altitude)))
	binary.LittleEndian.PutUint16(f[33:35], uint16(unscaleAltitude(r.Height)))
	binary.LittleEndian.PutUint16(f[35:37], uint16(r.VNorth))
	binary.LittleEndian.PutUint16(f[37:39], uint16(r.VEast))
	binary.LittleEndian.PutUint16(f[39:41], uint16(r.VUp))
	binary.LittleEndian.PutUint16(f[41:43], uint16(r.D1Angle))
	binary.LittleEndian.PutUint64(f[43:51], r.GPSTime)
	binary.LittleEndian.PutUint32(f[51:55], uint32(r.AppLat))
	binary.LittleEndian.PutUint32(f[55:59], uint32(r.AppLon))
	binary.LittleEndian.PutUint32(f[59:63], uint32(r.LongitudeHome))
	binary.LittleEndian.PutUint32(f[63:67], uint32(r.LatitudeHome))
	f[67] = r.DeviceType
	f[68] = r.UUIDLen
	copy(f[69:89], r.UUID)

	binary.LittleEndian.PutUint16(f[PayloadLength:], f.ComputeCRC())
	return f
}

// scaleAltitude converts a feet-valued int16 to meters with two-decimal
// rounding.
func scaleAltitude(raw int16) float64 {
	return math.Round(float64(raw)/feetPerMeter*100) / 100
}

func unscaleAltitude(meters float64) int16 {
	return int16(math.Round(meters * feetPerMeter))
}

// textField trims NUL padding and validates the remaining bytes decode as
// text.
func textField(b []byte) (string, error) {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	if !utf8.Valid(b[:end]) {
		return "", ErrBadText
	}
	return string(b[:end]), nil
}
