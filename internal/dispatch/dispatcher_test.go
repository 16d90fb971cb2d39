package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-qualifier/internal/crm"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/pkg/hubspot"
)

type fakeCRM struct {
	mu        sync.Mutex
	updatedID string
	updated   map[string]string
	updateErr error
}

func (f *fakeCRM) SearchContactByEmail(_ context.Context, _ string) (*hubspot.Contact, error) {
	return nil, nil
}

func (f *fakeCRM) UpdateContact(_ context.Context, id string, properties map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedID = id
	f.updated = properties
	return f.updateErr
}

func (f *fakeCRM) ListObjects(_ context.Context, _ string, _ []string, _ int) ([]hubspot.Object, error) {
	return nil, nil
}

type fakeSlack struct {
	mu          sync.Mutex
	reactions   []string
	dmUser      string
	dmText      string
	reactionErr error
	openErr     error
	postErr     error
}

func (f *fakeSlack) PostMessage(_ context.Context, channel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	if channel == "D456" {
		f.dmText = text
	}
	return nil
}

func (f *fakeSlack) AddReaction(_ context.Context, channel, timestamp, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactionErr != nil {
		return f.reactionErr
	}
	f.reactions = append(f.reactions, channel+"/"+timestamp+"/"+name)
	return nil
}

func (f *fakeSlack) OpenDM(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return "", f.openErr
	}
	f.dmUser = userID
	return "D456", nil
}

var qualifiedVerdict = &model.QualificationVerdict{
	Profile:   model.ProfileVerified,
	Score:     85,
	Qualified: true,
	Reasoning: "Listed on Doctolib",
}

var testLead = model.LeadRecord{
	FullName:  "Dr Jean Dupont",
	Email:     "jean.dupont@cabinet-dentaire.fr",
	Phone:     "06 12 34 56 78",
	Channel:   "C123",
	Timestamp: "1718000000.000100",
}

func TestDispatchQualified(t *testing.T) {
	fakeHub := &fakeCRM{}
	fakeSl := &fakeSlack{}
	d := NewDispatcher(crm.NewGateway(fakeHub), fakeSl, "U089")

	d.Dispatch(context.Background(), testLead, qualifiedVerdict, model.CrmLinkage{ContactID: "51", Exists: true})

	assert.Equal(t, "51", fakeHub.updatedID)
	assert.Equal(t, "Qualified", fakeHub.updated["lead_status"])

	require.Len(t, fakeSl.reactions, 1)
	assert.Equal(t, "C123/1718000000.000100/white_check_mark", fakeSl.reactions[0])

	assert.Equal(t, "U089", fakeSl.dmUser)
	assert.Contains(t, fakeSl.dmText, "LEAD QUALIFIE")
	assert.Contains(t, fakeSl.dmText, "Dr Jean Dupont")
	assert.Contains(t, fakeSl.dmText, "Score: 85/100")
}

func TestDispatchNotQualified(t *testing.T) {
	fakeHub := &fakeCRM{}
	fakeSl := &fakeSlack{}
	d := NewDispatcher(crm.NewGateway(fakeHub), fakeSl, "U089")

	verdict := &model.QualificationVerdict{Profile: model.ProfileSpam, Score: 10}
	d.Dispatch(context.Background(), testLead, verdict, model.CrmLinkage{ContactID: "51", Exists: true})

	assert.Equal(t, "KO", fakeHub.updated["lead_status"])
	require.Len(t, fakeSl.reactions, 1)
	assert.Contains(t, fakeSl.reactions[0], "/x")

	// No DM for not-qualified leads.
	assert.Empty(t, fakeSl.dmUser)
}

func TestDispatchUnlinkedContactSkipsCRM(t *testing.T) {
	fakeHub := &fakeCRM{}
	fakeSl := &fakeSlack{}
	d := NewDispatcher(crm.NewGateway(fakeHub), fakeSl, "U089")

	d.Dispatch(context.Background(), testLead, qualifiedVerdict, model.CrmLinkage{})

	assert.Empty(t, fakeHub.updatedID)
	assert.Len(t, fakeSl.reactions, 1)
	assert.Equal(t, "U089", fakeSl.dmUser)
}

func TestDispatchStepsAreIndependent(t *testing.T) {
	tests := []struct {
		name string
		hub  *fakeCRM
		sl   *fakeSlack
	}{
		{name: "crm_failure", hub: &fakeCRM{updateErr: errors.New("503")}, sl: &fakeSlack{}},
		{name: "reaction_failure", hub: &fakeCRM{}, sl: &fakeSlack{reactionErr: errors.New("invalid_auth")}},
		{name: "dm_open_failure", hub: &fakeCRM{}, sl: &fakeSlack{openErr: errors.New("user_not_found")}},
		{name: "dm_post_failure", hub: &fakeCRM{}, sl: &fakeSlack{postErr: errors.New("channel_not_found")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(crm.NewGateway(tt.hub), tt.sl, "U089")
			d.Dispatch(context.Background(), testLead, qualifiedVerdict, model.CrmLinkage{ContactID: "51", Exists: true})

			// CRM update is attempted regardless of Slack failures and
			// vice versa.
			if tt.hub.updateErr == nil {
				assert.Equal(t, "51", tt.hub.updatedID)
			}
			if tt.sl.reactionErr == nil {
				assert.Len(t, tt.sl.reactions, 1)
			}
		})
	}
}

func TestDispatchNoSlackClient(t *testing.T) {
	fakeHub := &fakeCRM{}
	d := NewDispatcher(crm.NewGateway(fakeHub), nil, "U089")

	d.Dispatch(context.Background(), testLead, qualifiedVerdict, model.CrmLinkage{ContactID: "51", Exists: true})
	assert.Equal(t, "51", fakeHub.updatedID)
}

func TestDispatchNoNotifyUser(t *testing.T) {
	fakeSl := &fakeSlack{}
	d := NewDispatcher(crm.NewGateway(nil), fakeSl, "")

	d.Dispatch(context.Background(), testLead, qualifiedVerdict, model.CrmLinkage{})
	assert.Empty(t, fakeSl.dmUser)
	assert.Len(t, fakeSl.reactions, 1)
}

func TestFormatSummaryTruncatesReasoning(t *testing.T) {
	t.Parallel()
	verdict := &model.QualificationVerdict{
		Profile:   model.ProfileVerified,
		Score:     90,
		Qualified: true,
		Reasoning: strings.Repeat("a", 300),
	}

	summary := FormatSummary(testLead, verdict)
	assert.Contains(t, summary, strings.Repeat("a", 200)+"...")
	assert.NotContains(t, summary, strings.Repeat("a", 201))
}

func TestFormatSummaryMissingFields(t *testing.T) {
	t.Parallel()
	summary := FormatSummary(model.LeadRecord{}, &model.QualificationVerdict{Profile: model.ProfileOther})
	assert.Contains(t, summary, "👤 Unknown")
	assert.Contains(t, summary, "📧 Unknown")
	assert.Contains(t, summary, "NON QUALIFIE")
}
