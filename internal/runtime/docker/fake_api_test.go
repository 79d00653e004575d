package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
)

// scriptedContainer describes how the fake daemon behaves for the next
// container it creates.
type scriptedContainer struct {
	exits     []exitStep
	stdout    string
	stderr    string
	oomKilled bool
}

// exitStep is one ContainerWait outcome. A zero step blocks until the
// caller's context ends.
type exitStep struct {
	code int64
	ok   bool
}

func exitsWith(code int64) exitStep { return exitStep{code: code, ok: true} }

type fakeContainerAPI struct {
	mu sync.Mutex

	pullErr   error
	createErr error
	scripts   []scriptedContainer

	pulls   []string
	created []createdContainer
	copied  map[string][]byte
	stopped []string
	removed []string
	closed  bool

	live map[string]*scriptedContainer
}

type createdContainer struct {
	id   string
	cfg  *container.Config
	host *container.HostConfig
}

func newFakeContainerAPI(scripts ...scriptedContainer) *fakeContainerAPI {
	return &fakeContainerAPI{
		scripts: scripts,
		copied:  make(map[string][]byte),
		live:    make(map[string]*scriptedContainer),
	}
}

func (f *fakeContainerAPI) ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, ref)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	return io.NopCloser(bytes.NewReader([]byte(`{"status":"done"}`))), nil
}

func (f *fakeContainerAPI) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}

	id := fmt.Sprintf("unit-%d", len(f.created))
	f.created = append(f.created, createdContainer{id: id, cfg: config, host: hostConfig})

	script := scriptedContainer{exits: []exitStep{exitsWith(0)}}
	if len(f.scripts) > 0 {
		script = f.scripts[0]
		f.scripts = f.scripts[1:]
	}
	f.live[id] = &script
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeContainerAPI) CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.copied[containerID+":"+dstPath] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeContainerAPI) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	return nil
}

func (f *fakeContainerAPI) ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)

	f.mu.Lock()
	defer f.mu.Unlock()

	script := f.live[containerID]
	if script == nil || len(script.exits) == 0 {
		return statusCh, errCh
	}
	step := script.exits[0]
	script.exits = script.exits[1:]
	if step.ok {
		statusCh <- container.WaitResponse{StatusCode: step.code}
	}
	return statusCh, errCh
}

func (f *fakeContainerAPI) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	f.mu.Lock()
	f.stopped = append(f.stopped, containerID)
	f.mu.Unlock()
	return nil
}

func (f *fakeContainerAPI) ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := &types.ContainerState{}
	if script := f.live[containerID]; script != nil {
		state.OOMKilled = script.oomKilled
	}
	return types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{State: state}}, nil
}

func (f *fakeContainerAPI) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	script := f.live[containerID]
	f.mu.Unlock()

	var buf bytes.Buffer
	if script != nil {
		if script.stdout != "" {
			_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(script.stdout))
		}
		if script.stderr != "" {
			_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(script.stderr))
		}
	}
	return io.NopCloser(&buf), nil
}

func (f *fakeContainerAPI) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	f.mu.Lock()
	f.removed = append(f.removed, containerID)
	delete(f.live, containerID)
	f.mu.Unlock()
	return nil
}

func (f *fakeContainerAPI) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
