// Package restyutil traces resty requests and optionally dumps every exchange
// to disk for debugging the portal's responses.
package restyutil

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

type Output interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    Output
	tracer    trace.Tracer
	idcounter *uint64
}

type exchangeIdKeyType int

var exchangeIdKey exchangeIdKeyType

// InstrumentClient opens a span per request. `output` may be nil, exchanges
// are only dumped when it is set.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output Output) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{output: output, tracer: tracer, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), req.Method)
	id := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	ctx = context.WithValue(ctx, exchangeIdKey, id)
	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// the raw request only exists once the request was sent
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	if i.output != nil {
		id, _ := ctx.Value(exchangeIdKey).(string)
		i.output.Write(id, formatHttpMessage(res))
	}
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	span.SetName(fmt.Sprintf("http %s", req.Method))
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}
}
