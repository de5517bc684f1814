// internal/wire/wire.go
package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDecode marks a controller reply that cannot be interpreted.
// Transport failures are NOT ErrDecode; they belong to the link layer.
var ErrDecode = errors.New("wire: malformed reply")

// Bus identifies one I/O category on the controller.
type Bus int

const (
	BusDO Bus = iota // digital output
	BusDI            // digital input
	BusAO            // analog output
	BusAI            // analog input
	BusDIO           // bidirectional digital
	BusSensorTemp    // temperature sensor
)

// String returns the configuration-facing name of the bus.
func (b Bus) String() string {
	switch b {
	case BusDO:
		return "DO"
	case BusDI:
		return "DI"
	case BusAO:
		return "AO"
	case BusAI:
		return "AI"
	case BusDIO:
		return "DIO"
	case BusSensorTemp:
		return "SENSOR_TEMP"
	default:
		return fmt.Sprintf("Bus(%d)", int(b))
	}
}

// Token returns the literal bus token sent on the wire.
// The temperature bus is the two-word literal "SENSOR temp"; the controller
// firmware matches it verbatim.
func (b Bus) Token() string {
	if b == BusSensorTemp {
		return "SENSOR temp"
	}
	return b.String()
}

// ParseBus maps a configuration token to a Bus.
func ParseBus(s string) (Bus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DO":
		return BusDO, nil
	case "DI":
		return BusDI, nil
	case "AO":
		return BusAO, nil
	case "AI":
		return BusAI, nil
	case "DIO":
		return BusDIO, nil
	case "SENSOR_TEMP", "SENSOR TEMP", "TEMP":
		return BusSensorTemp, nil
	default:
		return 0, fmt.Errorf("wire: unknown bus %q", s)
	}
}

// EncodeRead builds one GET request line.
func EncodeRead(bus Bus, pin int) string {
	return fmt.Sprintf("GET %s %d\n", bus.Token(), pin)
}

// EncodeWrite builds one SET request line.
// Boolean channels render the value as 1/0.
func EncodeWrite(bus Bus, pin int, value float64, boolean bool) string {
	return fmt.Sprintf("SET %s %d %s\n", bus.Token(), pin, formatValue(value, boolean))
}

func formatValue(value float64, boolean bool) string {
	if boolean {
		if value != 0 {
			return "1"
		}
		return "0"
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}

// DecodeReadReply extracts the value from a GET reply line.
// The value is the last whitespace-separated token, parsed as a float.
// Boolean channels coerce by truthiness: any non-zero reading becomes 1.
func DecodeReadReply(line string, boolean bool) (float64, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty reply", ErrDecode)
	}
	raw := fields[len(fields)-1]
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric value %q", ErrDecode, raw)
	}
	if boolean {
		if v != 0 {
			return 1, nil
		}
		return 0, nil
	}
	return v, nil
}

// DecodeWriteAck reports whether a SET reply acknowledges the write.
// Success is the exact literal "OK"; anything else is an acknowledgment
// mismatch, which the caller classifies (it is not a transport error).
func DecodeWriteAck(line string) bool {
	return strings.TrimRight(line, "\r\n") == "OK"
}
