package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup("toastbox-test", &buf)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), "toast.add")
	span.SetAttributes(AttrProvider.String("main"), AttrToastID.Int64(1))
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "toast.add")
	assert.Contains(t, buf.String(), "toastbox.provider")
}

func TestNilProviderShutdown(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
