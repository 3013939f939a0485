package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// drain iterates p to the end and returns the formatted documents.
func drain(t *testing.T, p document.Provider) ([]string, error) {
	t.Helper()
	it, err := p.Iterate(context.Background())
	require.NoError(t, err)
	defer func() { require.NoError(t, p.Close(it)) }()

	var out []string
	for it.Next() {
		s, err := document.Format(it.Document())
		require.NoError(t, err)
		out = append(out, s)
	}
	return out, it.Err()
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strings keep order", `{"b":"2","a":"1"}`, "{b=2,a=1}"},
		{"numbers and booleans", `{"n":12.50,"ok":true}`, "{n=12.50,ok=true}"},
		{"null is absent", `{"a":null,"b":"x"}`, "{b=x}"},
		{"nested values as json", `{"tags":["a", "b"],"meta":{"k": 1}}`, `{tags=["a","b"],meta={"k":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeJSON([]byte(tt.input))
			require.NoError(t, err)
			got, err := document.Format(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON_RejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[1,2]`, `"text"`, `{"a":`, `{"a":"1"} {"b":"2"}`} {
		_, err := DecodeJSON([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestJSONLProvider(t *testing.T) {
	// Given: a file with two documents and a blank line
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	content := "{\"id\":\"1\",\"title\":\"first\"}\n\n{\"id\":\"2\",\"title\":\"second\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// When: draining the provider
	got, err := drain(t, NewJSONLProvider(path))

	// Then: both documents come back in file order
	require.NoError(t, err)
	assert.Equal(t, []string{"{id=1,title=first}", "{id=2,title=second}"}, got)
}

func TestJSONLProvider_MalformedLineStopsIteration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"1\"}\nnot json\n{\"id\":\"3\"}\n"), 0o644))

	got, err := drain(t, NewJSONLProvider(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
	assert.Equal(t, []string{"{id=1}"}, got)
}

func TestJSONLProvider_MissingFile(t *testing.T) {
	p := NewJSONLProvider(filepath.Join(t.TempDir(), "missing.jsonl"))
	_, err := p.Iterate(context.Background())
	assert.Error(t, err)
	assert.NoError(t, p.Close(nil))
}

func TestJSONLProvider_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"1\"}\n"), 0o644))
	p := NewJSONLProvider(path)

	it, err := p.Iterate(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Close(it))
	assert.NoError(t, p.Close(it))
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQL(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, brand TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products (id, name, brand) VALUES (1, 'Lamp', 'Acme'), (2, 'Desk', NULL)`)
	require.NoError(t, err)
	return db
}

func TestSQLProvider(t *testing.T) {
	// Given: a table with a NULL column
	db := openSQLite(t)

	// When: draining a query over it
	got, err := drain(t, NewSQLProvider(db, `SELECT id, name, brand FROM products ORDER BY id`))

	// Then: columns become fields and NULL is absent
	require.NoError(t, err)
	assert.Equal(t, []string{"{id=1,name=Lamp,brand=Acme}", "{id=2,name=Desk}"}, got)
}

func TestSQLProvider_QueryArgs(t *testing.T) {
	db := openSQLite(t)

	got, err := drain(t, NewSQLProvider(db, `SELECT name FROM products WHERE id = ?`, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"{name=Desk}"}, got)
}

func TestSQLProvider_BadQuery(t *testing.T) {
	db := openSQLite(t)
	p := NewSQLProvider(db, `SELECT * FROM missing`)

	_, err := p.Iterate(context.Background())
	assert.Error(t, err)
}

func TestOpenSQL_UnsupportedDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "oracle", "")
	assert.Error(t, err)
}

func TestRedisProvider(t *testing.T) {
	addr := os.Getenv("DOCSEARCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DOCSEARCH_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	prefix := fmt.Sprintf("docsearch-test-%d:", time.Now().UnixNano())
	require.NoError(t, client.HSet(ctx, prefix+"1", "title", "Lamp").Err())
	require.NoError(t, client.HSet(ctx, prefix+"2", "title", "Desk").Err())
	defer client.Del(ctx, prefix+"1", prefix+"2")

	got, err := drain(t, NewRedisProvider(client, prefix+"*", "key"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"{title=Lamp,key=" + prefix + "1}",
		"{title=Desk,key=" + prefix + "2}",
	}, got)
}

// fakeReader serves messages from memory and records commits.
type fakeReader struct {
	messages  []kafka.Message
	committed []int64
	fetchErr  error
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	if len(r.messages) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed++
	return nil
}

func kafkaMessages(values ...string) []kafka.Message {
	msgs := make([]kafka.Message, len(values))
	for i, v := range values {
		msgs[i] = kafka.Message{Offset: int64(i), Key: []byte(fmt.Sprint("k", i)), Value: []byte(v)}
	}
	return msgs
}

func TestKafkaProvider_ReadsUntilIdle(t *testing.T) {
	// Given: two messages on the topic
	r := &fakeReader{messages: kafkaMessages(`{"id":"1"}`, `{"id":"2"}`)}
	p := newKafkaProvider(KafkaConfig{
		Brokers:     []string{"localhost:9092"},
		Topic:       "docs",
		IdleTimeout: 50 * time.Millisecond,
		KeyField:    "key",
	}, func() MessageReader { return r })

	// When: draining until the topic goes idle
	got, err := drain(t, p)

	// Then: both documents are read and committed, and the reader is closed
	require.NoError(t, err)
	assert.Equal(t, []string{"{id=1,key=k0}", "{id=2,key=k1}"}, got)
	assert.Equal(t, []int64{0, 1}, r.committed)
	assert.Equal(t, 1, r.closed)
}

func TestKafkaProvider_LastMessageOfAbortedBatchIsNotCommitted(t *testing.T) {
	r := &fakeReader{messages: kafkaMessages(`{"id":"1"}`, `{"id":"2"}`)}
	p := newKafkaProvider(KafkaConfig{Brokers: []string{"b"}, Topic: "docs"}, func() MessageReader { return r })

	it, err := p.Iterate(context.Background())
	require.NoError(t, err)
	require.True(t, it.Next())
	require.True(t, it.Next())
	require.NoError(t, p.Close(it))

	assert.Equal(t, []int64{0}, r.committed)
}

func TestKafkaProvider_MaxMessages(t *testing.T) {
	r := &fakeReader{messages: kafkaMessages(`{"id":"1"}`, `{"id":"2"}`, `{"id":"3"}`)}
	p := newKafkaProvider(KafkaConfig{Brokers: []string{"b"}, Topic: "docs", MaxMessages: 2},
		func() MessageReader { return r })

	got, err := drain(t, p)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []int64{0, 1}, r.committed)
}

func TestKafkaProvider_MalformedMessage(t *testing.T) {
	r := &fakeReader{messages: kafkaMessages(`{"id":"1"}`, `oops`)}
	p := newKafkaProvider(KafkaConfig{Brokers: []string{"b"}, Topic: "docs"}, func() MessageReader { return r })

	got, err := drain(t, p)
	require.Error(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []int64{0}, r.committed)
}

func TestKafkaProvider_FetchError(t *testing.T) {
	r := &fakeReader{fetchErr: fmt.Errorf("broker down")}
	p := newKafkaProvider(KafkaConfig{Brokers: []string{"b"}, Topic: "docs"}, func() MessageReader { return r })

	_, err := drain(t, p)
	assert.ErrorContains(t, err, "broker down")
}

func TestKafkaProvider_RequiresTopic(t *testing.T) {
	p := NewKafkaProvider(KafkaConfig{})
	_, err := p.Iterate(context.Background())
	assert.Error(t, err)
}
