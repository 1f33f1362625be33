package etcd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// memKV es un KV en memoria para pruebas
type memKV struct {
	data    map[string]string
	failGet bool
	failPut bool
	puts    []string
}

func newMemKV(data map[string]string) *memKV {
	if data == nil {
		data = make(map[string]string)
	}
	return &memKV{data: data}
}

func (m *memKV) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	if m.failGet {
		return nil, errors.New("error simulado en Get")
	}
	val, ok := m.data[key]
	if !ok {
		return &clientv3.GetResponse{}, nil
	}
	return &clientv3.GetResponse{Kvs: []*mvccpb.KeyValue{{Key: []byte(key), Value: []byte(val)}}}, nil
}

func (m *memKV) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	if m.failPut {
		return nil, errors.New("error simulado en Put")
	}
	m.data[key] = val
	m.puts = append(m.puts, key)
	return &clientv3.PutResponse{}, nil
}

func (m *memKV) Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	delete(m.data, key)
	return &clientv3.DeleteResponse{}, nil
}

func newTestClient(kv KV) *Client {
	return NewWithKV(kv, WithApp("signals"), WithEnv("testing"), WithTimeout(time.Second))
}

func TestClient_GetVar(t *testing.T) {
	client := newTestClient(newMemKV(map[string]string{"trading/lot_size": "0.05"}))
	ctx := context.Background()

	value, err := client.GetVar(ctx, "trading/lot_size")
	require.NoError(t, err)
	assert.Equal(t, "0.05", value)

	_, err = client.GetVar(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not found")
}

func TestClient_GetVar_Error(t *testing.T) {
	kv := newMemKV(nil)
	kv.failGet = true
	client := newTestClient(kv)

	_, err := client.GetVar(context.Background(), "any")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error simulado")

	// Con default el error se absorbe
	value, err := client.GetVarWithDefault(context.Background(), "any", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", value)
}

func TestClient_SetVarsSortedAndDelete(t *testing.T) {
	kv := newMemKV(nil)
	client := newTestClient(kv)
	ctx := context.Background()

	require.NoError(t, client.SetVars(ctx, map[string]string{"b": "2", "a": "1", "c": "3"}))
	assert.Equal(t, []string{"a", "b", "c"}, kv.puts)

	require.NoError(t, client.DeleteVar(ctx, "b"))
	_, err := client.GetVar(ctx, "b")
	assert.Error(t, err)
}

func TestClient_SetVar_Error(t *testing.T) {
	kv := newMemKV(nil)
	kv.failPut = true
	client := newTestClient(kv)

	err := client.SetVars(context.Background(), map[string]string{"a": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set key a")
}

func TestClient_NamespacePrefix(t *testing.T) {
	client := newTestClient(newMemKV(nil))
	assert.Equal(t, "/signals/testing/", client.NamespacePrefix())
	assert.NoError(t, client.Close())
}

func TestEndpointsFromEnv(t *testing.T) {
	t.Setenv(envEndpoints, " http://a:2379, ,http://b:2379 ")
	assert.Equal(t, []string{"http://a:2379", "http://b:2379"}, EndpointsFromEnv())

	t.Setenv(envEndpoints, "")
	assert.Nil(t, EndpointsFromEnv())
	assert.Equal(t, []string{defaultEndpoint}, defaultConfig().endpoints)
}

func TestNamespacePrefixFromOptions(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{WithApp("signals"), WithEnv("production")} {
		opt(cfg)
	}
	assert.Equal(t, "/signals/production/", namespacePrefix(cfg))
}
