package storage

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    start_time TIMESTAMP NOT NULL,
    receiver   TEXT NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS records (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT NOT NULL REFERENCES sessions (id),
    timestamp       TIMESTAMP NOT NULL,
    frequency       REAL NOT NULL,
    serial_number   TEXT NOT NULL,
    sequence_number INTEGER NOT NULL,
    state_info      INTEGER NOT NULL,
    longitude       REAL NOT NULL,
    latitude        REAL NOT NULL,
    altitude        REAL NOT NULL,
    height          REAL NOT NULL,
    v_north         INTEGER NOT NULL,
    v_east          INTEGER NOT NULL,
    v_up            INTEGER NOT NULL,
    d1_angle        INTEGER NOT NULL,
    gps_time        INTEGER NOT NULL,
    app_lat         INTEGER NOT NULL,
    app_lon         INTEGER NOT NULL,
    home_lat        INTEGER NOT NULL,
    home_lon        INTEGER NOT NULL,
    device_type     INTEGER NOT NULL,
    uuid            TEXT NOT NULL,
    crc_valid       INTEGER NOT NULL,
    crc_packet      INTEGER NOT NULL,
    crc_calculated  INTEGER NOT NULL
);`

const initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_records_session ON records (session_id);
CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records (timestamp);
CREATE INDEX IF NOT EXISTS idx_records_serial ON records (serial_number);`

const (
	insertSessionSQL = `
INSERT INTO sessions (id,
                      start_time,
                      receiver,
                      config)
VALUES (?, CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    receiver,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    receiver,
    config
FROM sessions
ORDER BY start_time`

	insertRecordSQL = `
INSERT INTO records (session_id,
                     timestamp,
                     frequency,
                     serial_number,
                     sequence_number,
                     state_info,
                     longitude,
                     latitude,
                     altitude,
                     height,
                     v_north,
                     v_east,
                     v_up,
                     d1_angle,
                     gps_time,
                     app_lat,
                     app_lon,
                     home_lat,
                     home_lon,
                     device_type,
                     uuid,
                     crc_valid,
                     crc_packet,
                     crc_calculated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecordsSQL = `
SELECT
    id,
    session_id,
    timestamp,
    frequency,
    serial_number,
    sequence_number,
    state_info,
    longitude,
    latitude,
    altitude,
    height,
    v_north,
    v_east,
    v_up,
    d1_angle,
    gps_time,
    app_lat,
    app_lon,
    home_lat,
    home_lon,
    device_type,
    uuid,
    crc_valid,
    crc_packet,
    crc_calculated
FROM records
WHERE
    session_id = ?`
)
