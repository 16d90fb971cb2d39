package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/pkg/hubspot"
)

type fakeHubSpot struct {
	contact     *hubspot.Contact
	searchErr   error
	updated     map[string]string
	updatedID   string
	updateErr   error
	objects     map[string][]hubspot.Object
	failTypes   map[string]bool
	listedTypes []string
	listedLimit int
}

func (f *fakeHubSpot) SearchContactByEmail(_ context.Context, _ string) (*hubspot.Contact, error) {
	return f.contact, f.searchErr
}

func (f *fakeHubSpot) UpdateContact(_ context.Context, id string, properties map[string]string) error {
	f.updatedID = id
	f.updated = properties
	return f.updateErr
}

func (f *fakeHubSpot) ListObjects(_ context.Context, objectType string, _ []string, limit int) ([]hubspot.Object, error) {
	f.listedTypes = append(f.listedTypes, objectType)
	f.listedLimit = limit
	if f.failTypes[objectType] {
		return nil, errors.New("scope missing")
	}
	return f.objects[objectType], nil
}

func TestCheckFound(t *testing.T) {
	fake := &fakeHubSpot{contact: &hubspot.Contact{ID: "51"}}
	gw := NewGateway(fake)

	linkage := gw.Check(context.Background(), "jean@cabinet.fr")
	assert.True(t, linkage.Exists)
	assert.Equal(t, "51", linkage.ContactID)
}

func TestCheckNotFound(t *testing.T) {
	gw := NewGateway(&fakeHubSpot{})

	linkage := gw.Check(context.Background(), "nobody@example.fr")
	assert.False(t, linkage.Exists)
	assert.Empty(t, linkage.ContactID)
}

func TestCheckNoTokenIsNonFatal(t *testing.T) {
	gw := NewGateway(nil)
	assert.False(t, gw.Configured())

	linkage := gw.Check(context.Background(), "jean@cabinet.fr")
	assert.False(t, linkage.Exists)
	assert.Empty(t, linkage.ContactID)
}

func TestCheckLookupErrorIsNonFatal(t *testing.T) {
	gw := NewGateway(&fakeHubSpot{searchErr: errors.New("503")})

	linkage := gw.Check(context.Background(), "jean@cabinet.fr")
	assert.False(t, linkage.Exists)
}

func TestUpdateQualifiedProperties(t *testing.T) {
	fake := &fakeHubSpot{}
	gw := NewGateway(fake)

	require.NoError(t, gw.Update(context.Background(), "51", true))
	assert.Equal(t, "51", fake.updatedID)
	assert.Equal(t, map[string]string{
		"lifecyclestage": "lead",
		"hs_lead_status": "OPEN",
		"lead_status":    "Qualified",
	}, fake.updated)
}

func TestUpdateNotQualifiedProperties(t *testing.T) {
	fake := &fakeHubSpot{}
	gw := NewGateway(fake)

	require.NoError(t, gw.Update(context.Background(), "51", false))
	assert.Equal(t, map[string]string{
		"hs_lead_status": "UNQUALIFIED",
		"lead_status":    "KO",
	}, fake.updated)
}

func TestUpdateNoTokenIsNoop(t *testing.T) {
	gw := NewGateway(nil)
	require.NoError(t, gw.Update(context.Background(), "51", true))
}

func TestEngagementHistory(t *testing.T) {
	fake := &fakeHubSpot{objects: map[string][]hubspot.Object{
		"notes": {
			{ID: "n1", Properties: map[string]string{
				"hs_note_body":  "<p>wrong number, <b>do not call</b></p>",
				"hs_createdate": "2025-05-01T10:00:00Z",
			}},
			{ID: "n2", Properties: map[string]string{"hs_note_body": "   "}},
		},
		"calls": {
			{ID: "c1", Properties: map[string]string{
				"hs_call_title": "Intro call",
				"hs_call_body":  "spoke with assistant",
				"hs_createdate": "2025-05-02T09:00:00Z",
			}},
		},
		"tasks": {
			{ID: "t1", Properties: map[string]string{
				"hs_task_subject": "Send brochure",
				"hs_task_status":  "COMPLETED",
			}},
		},
		"meetings": {
			{ID: "m1", Properties: map[string]string{
				"hs_meeting_title":     "Demo",
				"hs_meeting_starttime": "2025-05-03T14:00:00Z",
			}},
		},
	}}
	gw := NewGateway(fake)

	history := gw.EngagementHistory(context.Background(), "51")

	require.Len(t, history.Notes, 1)
	assert.Equal(t, "wrong number, do not call", history.Notes[0].Text)
	assert.Equal(t, "2025-05-01", history.Notes[0].Date)

	require.Len(t, history.Calls, 1)
	assert.Equal(t, "Intro call: spoke with assistant", history.Calls[0].Text)

	require.Len(t, history.Tasks, 1)
	assert.Equal(t, "Send brochure (COMPLETED)", history.Tasks[0].Text)

	require.Len(t, history.Meetings, 1)
	assert.Equal(t, "Demo", history.Meetings[0].Text)
	assert.Equal(t, "2025-05-03", history.Meetings[0].Date)

	assert.Equal(t, 10, fake.listedLimit)
	assert.ElementsMatch(t, []string{"notes", "calls", "tasks", "meetings"}, fake.listedTypes)
}

func TestEngagementHistoryPartialFailure(t *testing.T) {
	fake := &fakeHubSpot{
		objects: map[string][]hubspot.Object{
			"notes": {{ID: "n1", Properties: map[string]string{"hs_note_body": "left voicemail"}}},
		},
		failTypes: map[string]bool{"calls": true},
	}
	gw := NewGateway(fake)

	history := gw.EngagementHistory(context.Background(), "51")
	assert.Len(t, history.Notes, 1)
	assert.Empty(t, history.Calls)
	assert.False(t, history.Empty())
}

func TestEngagementHistoryNoToken(t *testing.T) {
	gw := NewGateway(nil)
	history := gw.EngagementHistory(context.Background(), "51")
	assert.True(t, history.Empty())
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", truncate("short", 200))
	long := make([]rune, 0, 250)
	for i := 0; i < 250; i++ {
		long = append(long, 'é')
	}
	got := truncate(string(long), 200)
	assert.Equal(t, 203, len([]rune(got)))
}
