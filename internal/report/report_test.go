package report

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"ocv/internal/rules"
)

func sampleReport() Report {
	return New("txn-1", "on_select", []rules.ValidationError{
		{Valid: false, Code: 20000, Description: "provider.id mismatches"},
	})
}

func TestFileWriter_AppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWriter(dir, "reports.jsonl")
	require.NoError(t, err)

	require.NoError(t, w.Append(sampleReport()))
	require.NoError(t, w.Append(sampleReport()))

	f, err := os.Open(filepath.Join(dir, "reports.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Report
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		require.Equal(t, "txn-1", r.TransactionID)
		require.Len(t, r.Errors, 1)
		require.NotEmpty(t, r.ID)
		lines++
	}
	require.Equal(t, 2, lines)
}

// fakeMessageWriter captures messages instead of talking to Kafka.
type fakeMessageWriter struct {
	msgs []kafka.Message
}

func (f *fakeMessageWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaWriter_KeysByTransaction(t *testing.T) {
	fake := &fakeMessageWriter{}
	w := NewKafkaWriterWith(fake)

	require.NoError(t, w.Append(sampleReport()))
	require.Len(t, fake.msgs, 1)
	require.Equal(t, []byte("txn-1"), fake.msgs[0].Key)

	var r Report
	require.NoError(t, json.Unmarshal(fake.msgs[0].Value, &r))
	require.Equal(t, "on_select", r.Stage)
}

func TestMultiWriter_FansOut(t *testing.T) {
	a := &fakeMessageWriter{}
	b := &fakeMessageWriter{}
	mw := NewMultiWriter(NewKafkaWriterWith(a), NewKafkaWriterWith(b))

	require.NoError(t, mw.Append(sampleReport()))
	require.Len(t, a.msgs, 1)
	require.Len(t, b.msgs, 1)
}
