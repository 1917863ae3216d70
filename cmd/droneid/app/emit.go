package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/skywatch/droneid/internal/decode"
)

// recordDocument is the JSON shape emitted per decoded frame.
type recordDocument struct {
	Timestamp        string  `json:"timestamp"`
	ReceptionTimeUTC string  `json:"reception_time_utc"`
	FrequencyMHz     float64 `json:"frequency_mhz"`

	Telemetry telemetryDocument `json:"telemetry"`

	CRCValid      bool   `json:"crc_valid"`
	CRCPacket     string `json:"crc_packet"`
	CRCCalculated string `json:"crc_calculated"`
}

type telemetryDocument struct {
	SerialNumber string `json:"serial_number"`
	DeviceType   uint8  `json:"device_type"`

	Position struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		AltitudeM float64 `json:"altitude_m"`
		HeightM   float64 `json:"height_m"`
	} `json:"position"`

	Velocity struct {
		North int16 `json:"north"`
		East  int16 `json:"east"`
		Up    int16 `json:"up"`
	} `json:"velocity"`

	HomePosition struct {
		Latitude  int32 `json:"latitude"`
		Longitude int32 `json:"longitude"`
	} `json:"home_position"`

	OperatorPosition struct {
		Latitude  int32 `json:"latitude"`
		Longitude int32 `json:"longitude"`
	} `json:"operator_position"`

	GPSTime        uint64 `json:"gps_time"`
	SequenceNumber uint16 `json:"sequence_number"`
	UUID           string `json:"uuid"`
}

// Emitter writes decoded records as JSON documents. Safe for concurrent
// use by the worker goroutines.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes one record, immediately on decode.
func (e *Emitter) Emit(rec *decode.Record) error {
	doc := recordDocument{
		Timestamp:        rec.Timestamp.Format(time.RFC3339Nano),
		ReceptionTimeUTC: rec.Timestamp.UTC().Format(time.RFC3339Nano),
		FrequencyMHz:     rec.Frequency / 1e6,
		CRCValid:         rec.CRCValid,
		CRCPacket:        fmt.Sprintf("0x%04x", rec.CRCPacket),
		CRCCalculated:    fmt.Sprintf("0x%04x", rec.CRCCalculated),
	}

	t := &doc.Telemetry
	t.SerialNumber = rec.SerialNumber
	t.DeviceType = rec.DeviceType
	t.Position.Latitude = rec.Latitude
	t.Position.Longitude = rec.Longitude
	t.Position.AltitudeM = rec.Altitude
	t.Position.HeightM = rec.Height
	t.Velocity.North = rec.VNorth
	t.Velocity.East = rec.VEast
	t.Velocity.Up = rec.VUp
	t.HomePosition.Latitude = rec.LatitudeHome
	t.HomePosition.Longitude = rec.LongitudeHome
	t.OperatorPosition.Latitude = rec.AppLat
	t.OperatorPosition.Longitude = rec.AppLon
	t.GPSTime = rec.GPSTime
	t.SequenceNumber = rec.SequenceNumber
	t.UUID = rec.UUID

	p, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	p = append(p, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err = e.w.Write(p); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}
