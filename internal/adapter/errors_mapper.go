// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/conflict"
)

// mapHTTPError turns a non-2xx response into a classified error. The body of
// a 409 decides whether the conflict can be settled automatically.
func mapHTTPError(op string, resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return apperrors.Wrap(apperrors.KindValidation, op, fmt.Errorf("%w: %s", ErrBadRequest, body))
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return apperrors.Wrap(apperrors.KindUnknown, op, fmt.Errorf("%w: %s", ErrUnauthorized, body))
	case code == http.StatusNotFound:
		return apperrors.Wrap(apperrors.KindNotFound, op, fmt.Errorf("%w: %s", ErrNotFound, body))
	case code == http.StatusConflict:
		err := fmt.Errorf("%w: %s", ErrConflict, body)
		if conflict.IsAutoResolvable(err) {
			return apperrors.Wrap(apperrors.KindAutoResolvableConflict, op, err)
		}
		return apperrors.Wrap(apperrors.KindRequiresUserResolution, op, err)
	case code == http.StatusTooManyRequests:
		return apperrors.Wrap(apperrors.KindRateLimited, op, fmt.Errorf("%w: %s", ErrRateLimited, body))
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return apperrors.Wrap(apperrors.KindTimeout, op, fmt.Errorf("%w: %s", ErrServer, body))
	case code >= http.StatusInternalServerError:
		return apperrors.Wrap(apperrors.KindNetwork, op, fmt.Errorf("%w: http %d: %s", ErrServer, code, body))
	default:
		return apperrors.Wrap(apperrors.KindUnknown, op, fmt.Errorf("http %d: %s", code, body))
	}
}

// mapTransportError classifies a request that never got a response.
func mapTransportError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return apperrors.Wrap(apperrors.KindCancelled, op, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Wrap(apperrors.KindTimeout, op, err)
	}
	return apperrors.Wrap(apperrors.KindNetwork, op, err)
}
