package httpserver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/cryptoutils"
	"github.com/ruteri/canary-registry/interfaces"
)

var ErrMissingSignature = errors.New("missing request signature")

// authenticate reads the request body and recovers the principal that
// signed it.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (interfaces.Address, []byte, error) {
	sigHex := r.Header.Get(api.SignatureHeader)
	if sigHex == "" {
		return interfaces.Address{}, nil, &RequestError{StatusCode: http.StatusUnauthorized, Err: ErrMissingSignature}
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return interfaces.Address{}, nil, &RequestError{
			StatusCode: http.StatusUnauthorized,
			Err:        fmt.Errorf("%w: %v", cryptoutils.ErrInvalidSignature, err),
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		return interfaces.Address{}, nil, &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: err}
	}

	sender, err := cryptoutils.RecoverSigner(r.Method, r.URL.Path, body, sig)
	if err != nil {
		h.log.Warn("Authentication failed", "path", r.URL.Path, "err", err)
		return interfaces.Address{}, nil, &RequestError{StatusCode: http.StatusUnauthorized, Err: err}
	}
	return sender, body, nil
}
