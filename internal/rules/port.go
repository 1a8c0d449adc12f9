package rules

import (
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// Port is a normalized destination port specification.
//
// The zero value means "no port" (ICMP rules). Otherwise it is the wildcard
// "*", a single port such as "80", or an inclusive range in the canonical
// "start:end" form. Backends render ranges with their own separator.
type Port string

const (
	NoPort  Port = ""
	AnyPort Port = "*"
)

// rangeSeparators are accepted on input; ':' is the canonical one.
const rangeSeparators = "-:"

// ParsePort normalizes a user supplied port specification. Parsing an
// already normalized value returns it unchanged. An empty input yields
// NoPort; whether a port is required is decided by the caller.
func ParsePort(s string) (Port, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return NoPort, nil
	case s == string(AnyPort):
		return AnyPort, nil
	}

	if i := strings.IndexAny(s, rangeSeparators); i >= 0 {
		start, err := parsePortNumber(s[:i], s)
		if err != nil {
			return NoPort, err
		}
		end, err := parsePortNumber(s[i+1:], s)
		if err != nil {
			return NoPort, err
		}
		if start > end {
			return NoPort, &ValidationError{Field: "port", Value: s, Reason: "range start must not exceed range end"}
		}
		return Port(strconv.Itoa(start) + ":" + strconv.Itoa(end)), nil
	}

	n, err := parsePortNumber(s, s)
	if err != nil {
		return NoPort, err
	}
	return Port(strconv.Itoa(n)), nil
}

func parsePortNumber(part, whole string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(part))
	if err != nil {
		return 0, &ValidationError{Field: "port", Value: whole, Reason: "port numbers must be integers"}
	}
	if n < MinPort || n > MaxPort {
		return 0, &ValidationError{Field: "port", Value: whole, Reason: "port must be between 1 and 65535"}
	}
	return n, nil
}

// IsSet reports whether the port is present at all.
func (p Port) IsSet() bool {
	return p != NoPort
}

// IsWildcard reports whether the port matches every port.
func (p Port) IsWildcard() bool {
	return p == AnyPort
}

// IsRange reports whether the port is a start:end range.
func (p Port) IsRange() bool {
	return strings.Contains(string(p), ":")
}

// Bounds returns the inclusive bounds of a single port or range. For a
// single port start equals end. It returns zeros for NoPort and AnyPort.
func (p Port) Bounds() (start, end int) {
	if !p.IsSet() || p.IsWildcard() {
		return 0, 0
	}
	first, last, found := strings.Cut(string(p), ":")
	start, _ = strconv.Atoi(first)
	if !found {
		return start, start
	}
	end, _ = strconv.Atoi(last)
	return start, end
}

func (p Port) String() string {
	return string(p)
}
