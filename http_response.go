/**
 * @Author: lidonglin
 * @Description:
 * @File:  http_response.go
 * @Version: 1.0.0
 * @Date: 2022/05/28 10:46
 */

package tclient

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"

	"github.com/json-iterator/go"
	"github.com/pkg/errors"
)

type Response struct {
	*http.Response
}

func (p *Response) ToBytes() (int, []byte, error) {
	statusCode := p.StatusCode

	defer p.Body.Close()

	var reader io.ReadCloser
	var err error

	switch p.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(p.Body)
		if err != nil {
			return statusCode, nil, errors.Wrap(err, "read gzip body")
		}
	case "deflate":
		reader = flate.NewReader(p.Body)
	default:
		reader = p.Body
	}

	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return statusCode, nil, err
	}

	return statusCode, body, nil
}

func (p *Response) ToString() (int, string, error) {
	statusCode, bytes, err := p.ToBytes()
	if err != nil {
		return statusCode, "", err
	}

	return statusCode, string(bytes), nil
}

// ToJson decodes the body into val
func (p *Response) ToJson(val interface{}) (int, error) {
	statusCode, bytes, err := p.ToBytes()
	if err != nil {
		return statusCode, err
	}

	err = jsoniter.Unmarshal(bytes, val)
	if err != nil {
		return statusCode, errors.Wrap(err, "unmarshal json body")
	}

	return statusCode, nil
}
