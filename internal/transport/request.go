package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/tasklink/pkg/errors"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// DecodeResponse decodes a JSON response into target and closes the body.
// Non-2xx responses become an APIError.
func DecodeResponse(system, endpoint string, resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.APIError{System: system, Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "read body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &errors.APIError{
			System:     system,
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    msg,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}
