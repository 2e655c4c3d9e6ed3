package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdanSoria/Project-Shop/internal/storage/memory"
)

func TestInitKafkaProducer_NoBrokers(t *testing.T) {
	producer, err := initKafkaProducer(validConfig(), quietLogger())
	require.NoError(t, err)
	assert.Nil(t, producer)
}

func TestInitKafkaProducer_UnreachableBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a broker")
	}
	cfg := validConfig()
	cfg.KafkaBrokers = []string{"invalid-broker.invalid:9999"}

	producer, err := initKafkaProducer(cfg, quietLogger())
	require.Error(t, err)
	assert.Nil(t, producer)
}

func TestCloseKafka_NilProducer(t *testing.T) {
	closeKafka(nil, quietLogger())
}

func TestNewOutboxWorker_Builds(t *testing.T) {
	worker := newOutboxWorker(validConfig(), memory.NewOutboxRepository(), nil, quietLogger())
	require.NotNil(t, worker)
}
