package services

import (
	"errors"
	"net/http"

	"github.com/coinbase/rosetta-sdk-go/types"

	"github.com/RelayProject/btcrelay/relay"
)

// statusForKind maps a relay.Error.Kind to the HTTP status spec §7
// prescribes: Validation -> 400, NotFound -> 404, everything else -> 500.
func statusForKind(kind relay.Kind) int {
	switch kind {
	case relay.KindValidation:
		return http.StatusBadRequest
	case relay.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorEnvelope builds the JSON body for err, using the teacher's own
// rosetta-sdk-go/types.Error envelope shape.
func errorEnvelope(err error) (int, *types.Error) {
	var relErr *relay.Error
	kind := relay.KindStorage
	if errors.As(err, &relErr) {
		kind = relErr.Kind
	}
	status := statusForKind(kind)

	description := err.Error()
	return status, &types.Error{
		Code:      int32(status),
		Message:   kind.String(),
		Description: &description,
		Retriable: status == http.StatusInternalServerError,
	}
}
