package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// writeJSON marshals a value to JSON, sets the Content-Type header,
// writes the status code, and sends the response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON-encoded value from an io.Reader and decodes it
// into the provided destination value 'v'.
func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)

	// Disallow unknown fields in the JSON. If the client sends a field
	// that doesn't exist in our struct, this will cause an error.
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxError):
			return errors.New("request body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			return errors.New("request body contains an invalid value for the " + unmarshalTypeError.Field + " field")

		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")

		default:
			return err
		}
	}

	return nil
}
