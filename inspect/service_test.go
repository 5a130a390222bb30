package inspect

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/engine"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/state"
	"github.com/project-flogo/recruit/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	server     *httptest.Server
	processID  string
	instanceID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	recorder := state.NewMemoryRecorder()
	e := engine.New(memstore.New(),
		engine.WithClock(func() time.Time { return now }),
		engine.WithRecorder(recorder, state.RecordingModeStep))

	def, err := e.CreateProcess(ctx, &definition.DefinitionRep{
		Name: "Support Engineer",
		Nodes: []*definition.NodeRep{
			{ID: "start", Type: "start", Title: "Applied"},
			{ID: "iv", Type: "interview", Title: "Interview", EstimatedDuration: 30,
				Config: map[string]interface{}{"interview_type": "phone", "duration": 30, "interviewers": []interface{}{"ivy"}}},
		},
		Connections: []*definition.ConnectionRep{{ID: "c1", From: "start", To: "iv"}},
	})
	require.Nil(t, err)
	_, err = e.ActivateProcess(ctx, def.ID())
	require.Nil(t, err)

	inst, err := e.Assign(ctx, def.ID(), "c1", "rita")
	require.Nil(t, err)
	_, err = e.Start(ctx, inst.ID())
	require.Nil(t, err)

	svc := New(e, Settings{BottleneckLimit: 3}, WithHistory(recorder), WithClock(func() time.Time { return now.Add(time.Hour) }))
	server := httptest.NewServer(svc.Handler())
	t.Cleanup(server.Close)

	return &fixture{server: server, processID: def.ID(), instanceID: inst.ID()}
}

func (f *fixture) get(t *testing.T, path string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.Nil(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	if resp.StatusCode == http.StatusOK && v != nil {
		require.Nil(t, json.Unmarshal(body, v), string(body))
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	var status map[string]string
	assert.Equal(t, http.StatusOK, f.get(t, "/status", &status))
	assert.Equal(t, "ok", status["status"])
}

func TestProcessRoutes(t *testing.T) {
	f := newFixture(t)

	var rep definition.DefinitionRep
	require.Equal(t, http.StatusOK, f.get(t, "/processes/"+f.processID, &rep))
	assert.Equal(t, "Support Engineer", rep.Name)
	assert.Equal(t, model.ProcessActive, rep.Status)

	var validation definition.ValidationResult
	require.Equal(t, http.StatusOK, f.get(t, "/processes/"+f.processID+"/validation", &validation))
	assert.True(t, validation.IsValid)
	assert.Equal(t, 2, validation.TotalNodes)

	var stats []map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/processes/"+f.processID+"/analytics", &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "iv", stats[1]["node_id"])
	assert.EqualValues(t, 1, stats[1]["open"])

	var bottlenecks []map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/processes/"+f.processID+"/bottlenecks?limit=1", &bottlenecks))
	require.Len(t, bottlenecks, 1)
	assert.Equal(t, "start", bottlenecks[0]["node_id"])

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/processes/"+f.processID+"/bottlenecks?limit=many", nil))

	var insts []map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/processes/"+f.processID+"/instances", &insts))
	require.Len(t, insts, 1)
	assert.Equal(t, "c1", insts[0]["candidateId"])

	assert.Equal(t, http.StatusNotFound, f.get(t, "/processes/missing", nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/processes/missing/analytics", nil))
}

func TestInstanceRoutes(t *testing.T) {
	f := newFixture(t)

	var view struct {
		Instance   map[string]interface{}   `json:"instance"`
		Executions []map[string]interface{} `json:"executions"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/instances/"+f.instanceID, &view))
	assert.Equal(t, string(model.InstanceInProgress), view.Instance["status"])
	assert.Equal(t, "iv", view.Instance["currentNodeId"])
	require.Len(t, view.Executions, 2)
	assert.Equal(t, "ivy", view.Executions[1]["assignee"])

	var steps []*state.Step
	require.Equal(t, http.StatusOK, f.get(t, "/instances/"+f.instanceID+"/history", &steps))
	require.Len(t, steps, 1)
	assert.Equal(t, "start", steps[0].Operation)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/instances/missing", nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/instances/missing/history", nil))
}

func TestWorkloadRoute(t *testing.T) {
	f := newFixture(t)

	// the interview is due 30 minutes after the start, the service clock is an hour later
	var workload []map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/workload?process="+f.processID, &workload))
	require.Len(t, workload, 1)
	assert.Equal(t, "ivy", workload[0]["assignee"])
	assert.EqualValues(t, 1, workload[0]["overdue"])

	var early []map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/workload?at="+now.Format(time.RFC3339), &early))
	require.Len(t, early, 1)
	assert.EqualValues(t, 1, early[0]["pending"])
	assert.EqualValues(t, 0, early[0]["overdue"])

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/workload?at=yesterday", nil))
}

func TestServer(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	require.Nil(t, srv.Start())
	assert.NotNil(t, srv.Start())

	resp, err := http.Get("http://" + srv.ListenAddr() + "/")
	require.Nil(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, srv.InstanceID(), resp.Header.Get("X-Server-Instance-Id"))

	require.Nil(t, srv.Stop())
	assert.Nil(t, srv.WaitStop(time.Second))
}
