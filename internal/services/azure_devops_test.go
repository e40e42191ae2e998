package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/rest"
)

type call struct {
	method  string
	uri     string
	payload string
}

type stubGateway struct {
	calls   []call
	respond func(method, uri string, payload []byte) ([]byte, error)
}

func (g *stubGateway) record(method, uri string, payload []byte) ([]byte, error) {
	g.calls = append(g.calls, call{method: method, uri: uri, payload: string(payload)})
	if g.respond == nil {
		return []byte(`{}`), nil
	}
	return g.respond(method, uri, payload)
}

func (g *stubGateway) Get(_ context.Context, uri string) ([]byte, error) {
	return g.record(http.MethodGet, uri, nil)
}

func (g *stubGateway) Post(_ context.Context, uri string, payload []byte) ([]byte, error) {
	return g.record(http.MethodPost, uri, payload)
}

func (g *stubGateway) PostPatch(_ context.Context, uri string, payload []byte) ([]byte, error) {
	return g.record("POST-PATCH", uri, payload)
}

func (g *stubGateway) Patch(_ context.Context, uri string, payload []byte) ([]byte, error) {
	return g.record(http.MethodPatch, uri, payload)
}

func (g *stubGateway) BaseURL() string {
	return "https://dev.azure.com/acme"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoWorkItems отвечает на запрос по идентификаторам списком элементов с теми же id.
func echoWorkItems(_ string, uri string, _ []byte) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	var items []string
	for _, id := range strings.Split(u.Query().Get("ids"), ",") {
		items = append(items, fmt.Sprintf(`{"id":%s,"rev":1,"fields":{}}`, id))
	}
	return []byte(`{"count":0,"value":[` + strings.Join(items, ",") + `]}`), nil
}

func TestGetWorkItemsByIDs_Batches(t *testing.T) {
	gw := &stubGateway{respond: echoWorkItems}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())

	ids := make([]int64, 450)
	for i := range ids {
		ids[i] = int64(1000 + i)
	}

	items, err := svc.GetWorkItemsByIDs(context.Background(), ids, "")
	require.NoError(t, err)
	require.Len(t, gw.calls, 3)
	require.Len(t, items, 450)

	for i, wi := range items {
		assert.Equal(t, fmt.Sprint(ids[i]), wi.IDString())
	}

	for _, c := range gw.calls {
		assert.Equal(t, http.MethodGet, c.method)
		assert.Contains(t, c.uri, "&$expand=relations")
	}
	assert.Equal(t, 200, strings.Count(gw.calls[0].uri, ",")+1)
	assert.Equal(t, 50, strings.Count(gw.calls[2].uri, ",")+1)
}

func TestGetWorkItemsByIDs_WithFields(t *testing.T) {
	gw := &stubGateway{respond: echoWorkItems}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())

	_, err := svc.GetWorkItemsByIDs(context.Background(), []int64{1, 2}, "proj", models.FieldTitle)
	require.NoError(t, err)
	require.Len(t, gw.calls, 1)

	uri := gw.calls[0].uri
	assert.True(t, strings.HasPrefix(uri, "/proj/_apis/wit/workitems?api-version=7.0&ids=1,2"), uri)
	assert.Contains(t, uri, "&fields=System.Title")
	assert.NotContains(t, uri, "$expand")
}

func TestGetWorkItemsByIDs_Empty(t *testing.T) {
	gw := &stubGateway{}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())

	items, err := svc.GetWorkItemsByIDs(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, gw.calls)
}

func TestRunQuery_WorkItemsAndRelations(t *testing.T) {
	gw := &stubGateway{respond: func(_, _ string, _ []byte) ([]byte, error) {
		return []byte(`{
			"workItems":[{"id":3},{"id":1}],
			"workItemRelations":[
				{"rel":null,"target":{"id":10}},
				{"rel":"System.LinkTypes.Hierarchy-Forward","source":{"id":10}},
				{"rel":"System.LinkTypes.Hierarchy-Forward","source":{"id":10},"target":{"id":11}}
			]}`), nil
	}}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids, err := svc.RunQuery(context.Background(), newQuery().ModifiedAfter(&since), "My Project")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 10, 11}, ids)

	require.Len(t, gw.calls, 1)
	c := gw.calls[0]
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/My%20Project/_apis/wit/wiql?api-version=7.0&timePrecision=true", c.uri)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(c.payload), &body))
	assert.Contains(t, body["query"], "[System.ChangedDate] >= '2024-01-01T00:00:00Z'")
}

func TestCreateWorkItem_Payload(t *testing.T) {
	gw := &stubGateway{respond: func(_, _ string, _ []byte) ([]byte, error) {
		return []byte(`{"id":77,"rev":1,"fields":{"System.ChangedDate":"2024-03-01T10:00:00Z"}}`), nil
	}}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())

	wi, err := svc.CreateWorkItem(context.Background(), "proj", "User Story")
	require.NoError(t, err)
	assert.Equal(t, "77", wi.IDString())

	c := gw.calls[0]
	assert.Equal(t, "POST-PATCH", c.method)
	assert.Equal(t, "/proj/_apis/wit/workitems/$User%20Story?api-version=7.0&bypassRules=true", c.uri)
	assert.JSONEq(t, `[{"op":"add","path":"/fields/System.Title","value":"Work Item created from PPM"}]`, c.payload)
}

func TestUpdateWorkItem_Payload(t *testing.T) {
	gw := &stubGateway{respond: func(_, _ string, _ []byte) ([]byte, error) {
		return []byte(`{"id":5,"rev":2}`), nil
	}}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())

	fields := map[string]*models.DataField{
		"System.Title":       models.NewStringField("New title"),
		"System.Description": {Type: models.DataTypeRichText},
		"System.AssignedTo": {Type: models.DataTypeUser, Value: []models.User{
			{UserID: 1, FullName: "Ann Lee"},
			{UserID: 2, FullName: "Bob Stone"},
		}},
		"Microsoft.VSTS.Scheduling.Effort": {Type: models.DataTypeFloat, Value: 3.5},
	}

	_, err := svc.UpdateWorkItem(context.Background(), "proj", "5", fields)
	require.NoError(t, err)

	c := gw.calls[0]
	assert.Equal(t, http.MethodPatch, c.method)
	assert.Equal(t, "/proj/_apis/wit/workitems/5?api-version=7.0&$expand=relations&bypassRules=true", c.uri)
	assert.JSONEq(t, `[
		{"op":"replace","path":"/fields/Microsoft.VSTS.Scheduling.Effort","value":3.5},
		{"op":"replace","path":"/fields/System.AssignedTo","value":"Ann Lee;Bob Stone"},
		{"op":"remove","path":"/fields/System.Description"},
		{"op":"replace","path":"/fields/System.Title","value":"New title"}
	]`, c.payload)
}

func TestGetWorkItemTypesForProject_Cached(t *testing.T) {
	gw := &stubGateway{respond: func(_, _ string, _ []byte) ([]byte, error) {
		return []byte(`{"count":2,"value":[{"name":"Bug"},{"name":"Task","isDisabled":true}]}`), nil
	}}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())
	ctx := context.Background()

	first, err := svc.GetWorkItemTypesForProject(ctx, "proj")
	require.NoError(t, err)
	second, err := svc.GetWorkItemTypesForProject(ctx, "proj")
	require.NoError(t, err)

	assert.Len(t, gw.calls, 1)
	assert.Equal(t, first, second)
	assert.True(t, second[1].IsDisabled)

	empty, err := svc.GetWorkItemTypesForProject(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Len(t, gw.calls, 1)
}

func TestGetFieldsDetails_MergesTypeFromGlobalFields(t *testing.T) {
	gw := &stubGateway{respond: func(_, uri string, _ []byte) ([]byte, error) {
		if strings.Contains(uri, "/workitemtypes/") {
			return []byte(`{"value":[
				{"referenceName":"System.State","name":"State","allowedValues":["New","Active"]},
				{"referenceName":"Custom.Score","name":"Score"}
			]}`), nil
		}
		return []byte(`{"value":[
			{"referenceName":"System.State","type":"string"},
			{"referenceName":"Custom.Score","type":"double"}
		]}`), nil
	}}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())
	ctx := context.Background()

	fields, err := svc.GetFieldsDetails(ctx, "proj", "Bug")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "string", fields[0].Type)
	assert.Equal(t, []string{"New", "Active"}, fields[0].AllowedValues)
	assert.Equal(t, "double", fields[1].Type)

	require.Len(t, gw.calls, 2)
	assert.Equal(t, "/proj/_apis/wit/workitemtypes/Bug/fields?api-version=7.0&$expand=allowedValues", gw.calls[0].uri)
	assert.Equal(t, "/proj/_apis/wit/fields?api-version=7.0", gw.calls[1].uri)

	_, err = svc.GetFieldsDetails(ctx, "proj", "Bug")
	require.NoError(t, err)
	assert.Len(t, gw.calls, 2)
}

func TestGetIteration(t *testing.T) {
	gw := &stubGateway{respond: func(_, _ string, _ []byte) ([]byte, error) {
		return []byte(`{"value":[
			{"name":"Sprint 1","path":"Proj\\Sprint 1","attributes":{"startDate":"2024-01-01T00:00:00Z","finishDate":"2024-01-14T00:00:00Z"}},
			{"name":"Sprint 2","path":"Proj\\Sprint 2","attributes":{"startDate":null,"finishDate":null}}
		]}`), nil
	}}
	svc := NewAzureDevopsService(gw, nil, nil, discardLogger())
	ctx := context.Background()

	it, err := svc.GetIteration(ctx, `Proj\sprint 1`)
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, "Sprint 1", it.Name)
	require.NotNil(t, it.StartDate())
	assert.Equal(t, 2024, it.StartDate().Year())

	it, err = svc.GetIteration(ctx, `Proj\Sprint 2`)
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Nil(t, it.StartDate())

	it, err = svc.GetIteration(ctx, `Proj\Unknown`)
	require.NoError(t, err)
	assert.Nil(t, it)

	it, err = svc.GetIteration(ctx, "Proj")
	require.NoError(t, err)
	assert.Nil(t, it)

	require.Len(t, gw.calls, 1)
	assert.Equal(t, "/Proj/_apis/work/teamsettings/iterations?api-version=7.0", gw.calls[0].uri)
}

func TestWorkItemToAgileEntity(t *testing.T) {
	svc := NewAzureDevopsService(&stubGateway{}, nil, nil, discardLogger())

	wi := &models.WorkItem{
		ID: "12",
		Fields: map[string]any{
			models.FieldTitle:       "Login page",
			models.FieldChangedDate: "2024-05-02T08:30:00.123Z",
			"Custom.Points":         2.6,
		},
	}
	fields := []models.Field{
		{ReferenceName: models.FieldTitle, Type: "string"},
		{ReferenceName: "Custom.Points", Type: "integer"},
		{ReferenceName: "Custom.Missing", Type: "double"},
	}

	ae, err := svc.WorkItemToAgileEntity(context.Background(), wi, fields)
	require.NoError(t, err)
	assert.Equal(t, "12", ae.ID)
	assert.Equal(t, "https://dev.azure.com/acme/_workitems/edit/12", ae.EntityURL)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 123000000, time.UTC), ae.LastUpdateTime.UTC())
	assert.Equal(t, "Login page", ae.Fields[models.FieldTitle].Value)
	assert.Equal(t, int64(3), ae.Fields["Custom.Points"].Value)
	assert.True(t, ae.Fields["Custom.Missing"].IsEmpty())

	delete(wi.Fields, models.FieldChangedDate)
	_, err = svc.WorkItemToAgileEntity(context.Background(), wi, fields)
	assert.ErrorIs(t, err, models.ErrMissingChangedDate)
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantMsg bool
	}{
		{"ok", http.StatusOK, false},
		{"unauthorized", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/acme/_apis/ConnectionData", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"instanceId":"abc","authenticatedUser":{"id":"u1"}}`))
			}))
			defer srv.Close()

			client, err := rest.NewClient(rest.Opts{OrganizationURL: srv.URL + "/acme", Token: "pat"}, discardLogger())
			require.NoError(t, err)

			msg := NewAzureDevopsService(client, nil, nil, discardLogger()).TestConnection(context.Background())
			if tt.wantMsg {
				assert.Contains(t, msg, "401")
			} else {
				assert.Empty(t, msg)
			}
		})
	}
}

func TestNewServiceFromConfig(t *testing.T) {
	_, err := NewServiceFromConfig(models.ValueSet{models.KeyOrganizationURL: "acme"}, nil, discardLogger())
	assert.ErrorIs(t, err, ErrMissingAccessToken)

	svc, err := NewServiceFromConfig(models.ValueSet{
		models.KeyOrganizationURL:     "acme",
		models.KeyPersonalAccessToken: "pat",
	}, nil, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://dev.azure.com/acme/_workitems/edit/1", svc.WorkItemURL("1"))
}

func TestRestOptsFromValues_ProxyPortDefault(t *testing.T) {
	opts, err := RestOptsFromValues(models.ValueSet{
		"PERSONALACCESSTOKEN": "pat",
		models.KeyProxyHost:   "proxy.local",
	})
	require.NoError(t, err)
	assert.Equal(t, "80", opts.ProxyPort)

	opts, err = RestOptsFromValues(models.ValueSet{models.KeyPersonalAccessToken: "pat"})
	require.NoError(t, err)
	assert.Empty(t, opts.ProxyPort)
}
