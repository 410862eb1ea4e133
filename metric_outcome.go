/**
 * @Author: lidonglin
 * @Description: classify the result of an outbound call
 * @File:  metric_outcome.go
 * @Version: 1.0.0
 * @Date: 2023/11/20 15:02
 */

package tclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

type callOutcome int

const (
	callOk callOutcome = iota
	callTimeout
	callOther
)

func (p callOutcome) String() string {
	switch p {
	case callOk:
		return "ok"
	case callTimeout:
		return OutcomeTimeout
	default:
		return "other"
	}
}

func classifyCall(resp *http.Response, err error) callOutcome {
	if err == nil {
		if resp == nil {
			return callOther
		}

		return callOk
	}

	if isTransportTimeout(err) {
		return callTimeout
	}

	return callOther
}

// isTransportTimeout reports whether err is a socket level timeout: dial
// timeouts, conn deadlines, response header timeouts. Context deadlines and
// cancellations of the caller are not, even when a wrapper reports Timeout.
func isTransportTimeout(err error) bool {
	for err != nil {
		if err == context.DeadlineExceeded || err == context.Canceled {
			return false
		}

		// url.Error reports the Timeout of the error it wraps
		_, ok := err.(*url.Error)
		if ok == false {
			netErr, ok := err.(net.Error)
			if ok == true && netErr.Timeout() {
				return true
			}
		}

		err = errors.Unwrap(err)
	}

	return false
}

func statusCodeLabel(resp *http.Response) string {
	return strconv.Itoa(resp.StatusCode)
}
