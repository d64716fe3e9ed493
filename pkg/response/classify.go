package response

import (
	"net/http"

	"github.com/sirosfoundation/go-bluem/pkg/registry"
)

// Classify maps an HTTP status and reply body onto a Response for a request
// sent with code. The error is set only when a 200 reply arrives for a code
// outside the code table.
func Classify(code registry.TransactionCode, status int, body []byte) (Response, error) {
	switch status {
	case http.StatusOK:
		return classifyOK(code, body)
	case http.StatusBadRequest:
		return protocolError(status, "%s", MsgBadRequest), nil
	case http.StatusUnauthorized:
		return protocolError(status, "%s", MsgUnauthorized), nil
	case http.StatusInternalServerError:
		return protocolError(status, "%s", MsgServerError), nil
	default:
		return protocolError(status, msgUnexpectedCode, status), nil
	}
}

func classifyOK(code registry.TransactionCode, body []byte) (Response, error) {
	if len(body) == 0 {
		return protocolError(http.StatusOK, "%s", MsgEmptyResponse), nil
	}

	v, err := code.Variant()
	if err != nil {
		return nil, err
	}

	d, err := parseDocument(body)
	if err != nil {
		e := protocolError(http.StatusOK, "%s%s", msgUnparsable, err.Error())
		e.Err = err
		return e, nil
	}
	d.family = v.Family()

	if d.Type() == TypeErrorResponse {
		msg := ""
		if el := d.errorElement(); el != nil {
			msg = text(el, "Error/ErrorMessage")
		}
		return providerError(http.StatusOK, msg), nil
	}

	res := newVariant(v, d)
	if !res.Status() {
		return providerError(http.StatusOK, res.ErrorMessage()), nil
	}
	return res, nil
}
