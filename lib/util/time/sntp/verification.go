package sntp

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

const (
	maxRTT            = 2 * time.Second
	maxClockOffset    = 10 * time.Minute
	maxRootDispersion = 1 * time.Second
	maxRootDelay      = 1 * time.Second
)

// validateResponse rejects responses from unsynchronized or implausible
// servers.
func validateResponse(response *ntp.Response) error {
	switch {
	case response == nil:
		return fmt.Errorf("nil response")
	case response.Leap == ntp.LeapNotInSync:
		return fmt.Errorf("server clock not synchronized")
	case response.Stratum == 0 || response.Stratum > 15:
		return fmt.Errorf("stratum %d out of range", response.Stratum)
	case response.RTT < 0 || response.RTT > maxRTT:
		return fmt.Errorf("round-trip delay %v out of bounds", response.RTT)
	case response.ClockOffset.Abs() > maxClockOffset:
		return fmt.Errorf("clock offset %v out of bounds", response.ClockOffset)
	case response.Time.IsZero():
		return fmt.Errorf("zero time")
	case response.RootDispersion > maxRootDispersion:
		return fmt.Errorf("root dispersion %v too high", response.RootDispersion)
	case response.RootDelay > maxRootDelay:
		return fmt.Errorf("root delay %v too high", response.RootDelay)
	}
	return nil
}
