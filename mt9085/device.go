package mt9085

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulohvieira/anritsu-mt9085/scpi"
)

const (
	// DefaultPort is the fixed TCP port of the MT9085 SCPI service.
	DefaultPort = 2288

	// Terminator is the command terminator the MT9085 expects and uses for
	// its responses.
	Terminator = "\r\n"
)

// Device represents one Anritsu MT9085 ACCESS Master reachable over its SCPI
// TCP service. It layers the IEEE-488.2 common commands the instrument
// understands on top of a raw scpi.Link; arbitrary commands can still be
// issued through Link().
type Device struct {
	link *scpi.Link
}

// New creates a Device for the instrument at the given host, using the
// MT9085's fixed SCPI port and CR-LF terminator. Additional link options may
// be supplied to adjust timeouts or logging.
func New(host string, opts ...scpi.LinkOption) (*Device, error) {
	return NewWithPort(host, DefaultPort, opts...)
}

// NewWithPort creates a Device for an instrument whose SCPI service listens
// on a non-standard port.
func NewWithPort(host string, port int, opts ...scpi.LinkOption) (*Device, error) {
	linkOpts := append([]scpi.LinkOption{
		scpi.WithTerminator([]byte(Terminator)),
	}, opts...)

	cfg, err := scpi.NewLinkConfig(host, port, linkOpts...)
	if err != nil {
		return nil, err
	}

	link, err := scpi.NewLink(cfg)
	if err != nil {
		return nil, err
	}

	return &Device{link: link}, nil
}

// Link returns the underlying SCPI link for issuing arbitrary commands.
func (d *Device) Link() *scpi.Link {
	return d.link
}

// Connect opens the connection to the instrument.
func (d *Device) Connect(ctx context.Context) error {
	return d.link.Connect(ctx)
}

// Disconnect closes the connection to the instrument.
func (d *Device) Disconnect() error {
	return d.link.Disconnect()
}

// Session acquires the device for the duration of fn: it connects, runs fn,
// and disconnects on every exit path.
func (d *Device) Session(ctx context.Context, fn func(dev *Device) error) error {
	return d.link.Session(ctx, func(*scpi.Link) error {
		return fn(d)
	})
}

// Identify queries *IDN? and parses the instrument's identification string.
func (d *Device) Identify() (Identity, error) {
	rsp, err := d.link.Query("*IDN?")
	if err != nil {
		return Identity{}, err
	}

	return ParseIdentity(rsp)
}

// Reset sends *RST, restoring the instrument to its power-on defaults.
func (d *Device) Reset() error {
	return d.link.Send("*RST")
}

// ClearStatus sends *CLS, clearing the instrument's status registers.
func (d *Device) ClearStatus() error {
	return d.link.Send("*CLS")
}

// OperationComplete queries *OPC? and reports whether all pending overlapped
// operations have finished. The instrument answers "1" once it is idle; the
// query blocks on the instrument side until then, bounded by the configured
// response timeout.
func (d *Device) OperationComplete() (bool, error) {
	rsp, err := d.link.Query("*OPC?")
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(rsp) == "1", nil
}

// Identity holds the four fields of an IEEE-488.2 *IDN? response.
type Identity struct {
	Manufacturer     string
	Model            string
	SerialNumber     string
	FirmwareRevision string
}

// String returns the identity in its original comma-separated form.
func (id Identity) String() string {
	return strings.Join([]string{id.Manufacturer, id.Model, id.SerialNumber, id.FirmwareRevision}, ",")
}

// ParseIdentity parses a *IDN? response of the form
// "<manufacturer>,<model>,<serial>,<firmware>". Surrounding whitespace on
// each field is stripped.
func ParseIdentity(s string) (Identity, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return Identity{}, fmt.Errorf("malformed identification %q: expected 4 fields, got %d", s, len(fields))
	}

	return Identity{
		Manufacturer:     strings.TrimSpace(fields[0]),
		Model:            strings.TrimSpace(fields[1]),
		SerialNumber:     strings.TrimSpace(fields[2]),
		FirmwareRevision: strings.TrimSpace(fields[3]),
	}, nil
}
