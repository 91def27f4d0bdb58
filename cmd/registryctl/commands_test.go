package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/relaygate/registry"
)

type ctl struct {
	t      *testing.T
	dbPath string
}

func newCtl(t *testing.T) *ctl {
	return &ctl{t: t, dbPath: filepath.Join(t.TempDir(), "registry.db")}
}

func (c *ctl) runContext(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--backend", "sqlite", "--sqlite-path", c.dbPath}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (c *ctl) run(args ...string) string {
	c.t.Helper()
	out, err := c.runContext(context.Background(), args...)
	require.NoError(c.t, err, strings.Join(args, " "))
	return out
}

func (c *ctl) list() []registry.ServiceInstance {
	c.t.Helper()
	var instances []registry.ServiceInstance
	require.NoError(c.t, json.Unmarshal([]byte(c.run("list")), &instances))
	return instances
}

func TestRegisterListResolve(t *testing.T) {
	c := newCtl(t)

	out := c.run("register", "item-service", "http://items:4002/")
	assert.Equal(t, "registered item-service at http://items:4002\n", out)

	instances := c.list()
	require.Len(t, instances, 1)
	assert.Equal(t, registry.StatusUnknown, instances[0].Status)

	_, err := c.runContext(context.Background(), "resolve", "item-service")
	assert.ErrorIs(t, err, registry.ErrServiceUnavailable)

	c.run("set-status", "item-service", "http://items:4002", "up")
	assert.Equal(t, "http://items:4002\n", c.run("resolve", "item-service"))

	c.run("register", "list-service", "http://lists:4003", "--up")
	assert.Len(t, c.list(), 2)

	var filtered []registry.ServiceInstance
	require.NoError(t, json.Unmarshal([]byte(c.run("list", "--name", "list-service")), &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, registry.StatusUp, filtered[0].Status)

	c.run("deregister", "item-service", "http://items:4002")
	instances = c.list()
	require.Len(t, instances, 1)
	assert.Equal(t, "list-service", instances[0].Name)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	c := newCtl(t)
	_, err := c.runContext(context.Background(), "set-status", "svc", "http://svc:1", "SLEEPING")
	assert.Error(t, err)
}

func TestCleanupKeepsFreshInstances(t *testing.T) {
	c := newCtl(t)
	c.run("register", "svc", "http://svc:1")
	assert.Equal(t, "removed 0 stale instance(s)\n", c.run("cleanup"))
	assert.Len(t, c.list(), 1)
}

func TestHeartbeatDeregistersOnExit(t *testing.T) {
	c := newCtl(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := c.runContext(ctx, "heartbeat", "media-service", "http://media:4004", "--interval", "50ms", "--up")
	require.NoError(t, err)
	assert.Contains(t, out, "heartbeating media-service at http://media:4004 every 50ms")
	assert.Empty(t, c.list())
}

func TestArgsAreChecked(t *testing.T) {
	c := newCtl(t)
	_, err := c.runContext(context.Background(), "register", "only-name")
	assert.Error(t, err)
}

func TestListAsYAML(t *testing.T) {
	c := newCtl(t)
	c.run("register", "user-service", "http://users:4001", "--up")

	var instances []registry.ServiceInstance
	require.NoError(t, yaml.Unmarshal([]byte(c.run("list", "-o", "yaml")), &instances))
	require.Len(t, instances, 1)
	assert.Equal(t, "user-service", instances[0].Name)
	assert.Equal(t, registry.StatusUp, instances[0].Status)
	assert.False(t, instances[0].LastHeartbeat.IsZero())

	_, err := c.runContext(context.Background(), "list", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}
