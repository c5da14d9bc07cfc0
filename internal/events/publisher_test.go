package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishReport_NilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	require.NoError(t, p.PublishReport(map[string]string{"id": "x"}))
	p.Close()
}

func TestPublishReport_UnconnectedPublisherIsNoop(t *testing.T) {
	p := &Publisher{subject: DefaultSubject}
	require.NoError(t, p.PublishReport(map[string]string{"id": "x"}))
	p.Close()
}
