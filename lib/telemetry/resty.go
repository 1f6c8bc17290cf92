package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// MessageOutput receives a dump of every request/response pair made by an
// instrumented client, keyed by the request id.
type MessageOutput interface {
	Write(id string, contents string)
}

// FilesystemOutput writes each dump into its own file under a directory.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput empties (or creates) dir and returns an output
// writing into it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}

type requestInfo struct {
	id    uint64
	start time.Time
}

type requestInfoKey struct{}

type restyHooks struct {
	tel    API
	tracer trace.Tracer
	output MessageOutput
	lastId *atomic.Uint64
}

// InstrumentResty gives every request made by client an id, a span from
// tracer and a debug report with its duration through tel. Transport
// failures are reported as broken. When output is not nil every exchange
// is also dumped to it.
func InstrumentResty(client *resty.Client, tel API, tracer trace.Tracer, output MessageOutput) {
	h := restyHooks{
		tel:    tel,
		tracer: tracer,
		output: output,
		lastId: &atomic.Uint64{},
	}
	client.OnBeforeRequest(h.before)
	client.OnAfterResponse(h.after)
	client.OnError(h.failed)
}

func (h restyHooks) before(_ *resty.Client, req *resty.Request) error {
	ctx, _ := h.tracer.Start(req.Context(), "http "+req.Method)
	info := requestInfo{id: h.lastId.Add(1), start: time.Now()}
	req.SetContext(context.WithValue(ctx, requestInfoKey{}, info))

	h.tel.ReportDebug(report_resty_request, info.id, req.Method, req.URL)
	return nil
}

func (h restyHooks) after(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// RawRequest only exists once the request was sent
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	info, ok := ctx.Value(requestInfoKey{}).(requestInfo)
	if !ok {
		h.tel.ReportWarning(report_resty_response, "request was not instrumented", res.Request.URL)
		return nil
	}
	h.tel.ReportDebug(report_resty_response, info.id, time.Since(info.start).String(), res.Status())

	if h.output != nil {
		h.output.Write(strconv.FormatUint(info.id, 10), dumpExchange(res))
	}
	return nil
}

func (h restyHooks) failed(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	var elapsed time.Duration
	info, ok := ctx.Value(requestInfoKey{}).(requestInfo)
	if ok {
		elapsed = time.Since(info.start)
	}
	h.tel.ReportBroken(report_resty_response, err, req.Method, req.URL, elapsed)
}

func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return "<no body>"
	}
	body, err := req.GetBody()
	if err != nil {
		return "<unreadable body: " + err.Error() + ">"
	}
	// resty hands out a nil body for requests without one
	if body == nil {
		return "<no body>"
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return "<unreadable body: " + err.Error() + ">"
	}
	return string(contents)
}

// dumpExchange renders a request and its response as plain text, the
// response url is where redirects ended up.
func dumpExchange(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		writeHeaders(&out, res.Request.RawRequest.Header)
	}
	out.WriteString("\n")
	out.WriteString(requestBody(res.Request.RawRequest))

	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	out.WriteString("\n\n---- RESPONSE ----\n\n")
	fmt.Fprintf(&out, "%d %s\n\n", res.StatusCode(), finalUrl)
	writeHeaders(&out, res.Header())
	out.WriteString("\n")
	out.WriteString(res.String())

	return out.String()
}
