package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/finopshub/advisor/pkg/errors"
)

// DecodeResponse reads and decodes a JSON response body into target.
// Non-200 statuses become APIErrors, which map onto the retry taxonomy:
// 429 is rate limited, 5xx and auth rejections are source unavailable.
func DecodeResponse(source string, resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapAPI(source, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &errors.APIError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapAPI(source, resp.StatusCode, err)
	}

	return nil
}
