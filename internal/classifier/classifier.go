package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Prediction is the outcome of classifying a single image.
type Prediction struct {
	Label        string
	Confidence   float64
	Scores       map[string]float64
	ModelVersion string
}

// Classifier produces a prediction for raw image bytes. Implementations must
// honor ctx cancellation; a deadline overrun should surface as a timeout
// error so the caller can record the failure accordingly.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Prediction, error)
}

// StatusError reports a non-2xx response from the model server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("classifier: http %d", e.StatusCode)
	}
	return fmt.Sprintf("classifier: http %d: %s", e.StatusCode, body)
}

// IsTimeout reports whether err represents a classification deadline overrun
// rather than an ordinary adapter failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
