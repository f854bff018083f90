// Package persist implements reorder.Persister on top of the curriculum API or the subject service.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-curriculum/core"
	"github.com/trezcool/masomo-curriculum/core/reorder"
)

type (
	// APIPersister saves topic positions through the curriculum HTTP API.
	APIPersister struct {
		baseURL string
		token   string
		client  *rest.Client
	}

	positionBody struct {
		Position int `json:"position"`
	}
)

var _ reorder.Persister = (*APIPersister)(nil)

func NewAPIPersister(conf core.APIConfig, httpClient *http.Client) *APIPersister {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIPersister{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		token:   conf.Token,
		client:  &rest.Client{HTTPClient: httpClient},
	}
}

// ReorderItem does PUT /v1/subjects/:id/topics/:topicId/position.
// A non-2xx answer is a rejection carrying the server's error message; only transport failures are errors.
func (p *APIPersister) ReorderItem(ctx context.Context, subjectID, topicID string, newPosition int) (reorder.Response, error) {
	body, err := json.Marshal(positionBody{Position: newPosition})
	if err != nil {
		return reorder.Response{}, errors.Wrap(err, "marshalling position")
	}

	req := rest.Request{
		Method:  rest.Put,
		BaseURL: fmt.Sprintf("%s/v1/subjects/%s/topics/%s/position", p.baseURL, url.PathEscape(subjectID), url.PathEscape(topicID)),
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: body,
	}
	if p.token != "" {
		req.Headers["Authorization"] = "Bearer " + p.token
	}

	res, err := p.send(ctx, req)
	if err != nil {
		return reorder.Response{}, err
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return reorder.Response{Success: false, Message: errorMessage(res)}, nil
	}

	var resp reorder.Response
	if err := json.Unmarshal([]byte(res.Body), &resp); err != nil {
		return reorder.Response{}, errors.Wrap(err, "decoding reorder response")
	}
	return resp, nil
}

// send is rest.Client.Send bound to ctx, so an abandoned commit cancels its request.
func (p *APIPersister) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrap(err, "building reorder request")
	}
	httpRes, err := p.client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "sending reorder request")
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return nil, errors.Wrap(err, "reading reorder response")
	}
	return res, nil
}

// errorMessage extracts a readable message from an API error body:
// {"error": "msg"} or {"field": "msg", ...}. Anything else falls back to the status text.
func errorMessage(res *rest.Response) string {
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(res.Body), &body); err == nil {
		if msg, ok := body["error"].(string); ok && msg != "" {
			return msg
		}
		fields := make([]string, 0, len(body))
		for fld, v := range body {
			if msg, ok := v.(string); ok {
				fields = append(fields, fld+": "+msg)
			}
		}
		if len(fields) > 0 {
			sort.Strings(fields)
			return strings.Join(fields, "; ")
		}
	}
	return strings.ToLower(http.StatusText(res.StatusCode))
}
