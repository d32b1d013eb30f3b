package btcore

// MaxDevices is the fixed capacity of a DeviceList
const MaxDevices = 10

// DeviceList is a bounded, insertion-ordered collection of device records.
// Slots are owned by value; the encoded size is the same no matter how many
// slots are populated.
type DeviceList struct {
	magic   uint32
	devices [MaxDevices]DeviceRecord
	count   uint8
}

// NewDeviceList creates an empty device list
func NewDeviceList() DeviceList {
	l := DeviceList{magic: deviceListMagic}
	for i := range l.devices {
		l.devices[i] = newEmptyDeviceRecord()
	}
	return l
}

// Add appends a record at the current count position.
// Returns ErrListFull when the list already holds MaxDevices records.
func (l *DeviceList) Add(record DeviceRecord) error {
	if int(l.count) >= len(l.devices) {
		return ErrListFull
	}

	l.devices[l.count] = record
	l.count++
	return nil
}

// Remove deletes the record at index, shifting later records toward the
// front so their relative order is preserved. The vacated tail slot is reset
// so no pairing material lingers past removal.
// Returns ErrIndexOutOfBounds if index is past the current count.
func (l *DeviceList) Remove(index int) error {
	if index < 0 || index >= int(l.count) {
		return ErrIndexOutOfBounds
	}

	for i := index; i < int(l.count)-1; i++ {
		l.devices[i] = l.devices[i+1]
	}
	l.count--
	l.devices[l.count] = newEmptyDeviceRecord()
	return nil
}

// Get returns the record at index without copying it out of the list.
// Returns ErrIndexOutOfBounds if index is past the current count.
func (l *DeviceList) Get(index int) (*DeviceRecord, error) {
	if index < 0 || index >= int(l.count) {
		return nil, ErrIndexOutOfBounds
	}
	return &l.devices[index], nil
}

// Len returns the number of records in the list
func (l *DeviceList) Len() int {
	return int(l.count)
}

// IsEmpty reports whether the list holds no records
func (l *DeviceList) IsEmpty() bool {
	return l.count == 0
}
