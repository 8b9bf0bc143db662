package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	ierr "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/models"
	"invoicer/internal/repositories"
	"invoicer/internal/validator"
)

type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) Load(ctx context.Context) repositories.LoadResult {
	args := m.Called(ctx)
	return args.Get(0).(repositories.LoadResult)
}

func (m *MockDraftRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockDraftRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockExportSink struct {
	mock.Mock
}

func (m *MockExportSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

type MockInvoiceMailer struct {
	mock.Mock
}

func (m *MockInvoiceMailer) SendInvoice(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// queuedRunner holds tasks until flush so in-flight behaviour can be observed
type queuedRunner struct {
	mu     sync.Mutex
	names  []string
	delays []time.Duration
	tasks  []func(ctx context.Context)
	err    error
}

func (r *queuedRunner) RunAfter(name string, delay time.Duration, task func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.names = append(r.names, name)
	r.delays = append(r.delays, delay)
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *queuedRunner) flush() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()

	for _, task := range tasks {
		task(context.Background())
	}
}

type DraftServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	repo     *MockDraftRepository
	sink     *MockExportSink
	mailer   *MockInvoiceMailer
	runner   *queuedRunner
	notifier NotificationService
	service  DraftService
}

func (suite *DraftServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.repo = &MockDraftRepository{}
	suite.sink = &MockExportSink{}
	suite.mailer = &MockInvoiceMailer{}
	suite.runner = &queuedRunner{}
	suite.notifier = NewNotificationService(0, logger.NewNopLogger())

	suite.repo.Test(suite.T())
	suite.sink.Test(suite.T())
	suite.mailer.Test(suite.T())

	suite.service = NewDraftService(
		suite.repo,
		suite.notifier,
		NewPDFRenderer(),
		suite.sink,
		suite.mailer,
		suite.runner,
		DraftServiceConfig{ExportDelay: 500 * time.Millisecond, EmailDelay: 2 * time.Second},
		logger.NewNopLogger(),
	)
}

func (suite *DraftServiceTestSuite) TearDownTest() {
	suite.repo.AssertExpectations(suite.T())
	suite.sink.AssertExpectations(suite.T())
	suite.mailer.AssertExpectations(suite.T())
}

func TestDraftServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DraftServiceTestSuite))
}

func (suite *DraftServiceTestSuite) lastNotification() models.Notification {
	list := suite.notifier.List()
	suite.Require().NotEmpty(list)
	return list[len(list)-1]
}

// fillSavable makes the current draft pass the save gate
func (suite *DraftServiceTestSuite) fillSavable() *models.Invoice {
	business, client, email := "Acme Co", "Globex", "ap@globex.test"
	_, err := suite.service.UpdateDetails(models.DetailsPatch{BusinessName: &business, ClientName: &client, ClientEmail: &email})
	suite.Require().NoError(err)

	id := suite.service.Current().LineItems()[0].ID
	_, _, err = suite.service.UpdateLineItem(id, models.LineItemFieldDescription, "Design")
	suite.Require().NoError(err)
	_, _, err = suite.service.UpdateLineItem(id, models.LineItemFieldPrice, 100)
	suite.Require().NoError(err)
	return suite.service.Current()
}

func (suite *DraftServiceTestSuite) TestInit_AdoptsLoadedDraft() {
	saved := models.NewDefaultInvoice(time.Now())
	saved.BusinessName = "Saved Co"
	suite.repo.On("Load", suite.ctx).Return(repositories.LoadResult{Status: repositories.LoadStatusLoaded, Invoice: saved})

	result := suite.service.Init(suite.ctx)

	assert.True(suite.T(), result.Usable())
	assert.Equal(suite.T(), saved.ID, suite.service.Current().ID)
	assert.Equal(suite.T(), "Saved Co", suite.service.Current().BusinessName)
	assert.Empty(suite.T(), suite.notifier.List())
}

func (suite *DraftServiceTestSuite) TestInit_EmptyUsesDefault() {
	suite.repo.On("Load", suite.ctx).Return(repositories.LoadResult{Status: repositories.LoadStatusEmpty})

	suite.service.Init(suite.ctx)

	current := suite.service.Current()
	assert.Len(suite.T(), current.LineItems(), 1)
	assert.Equal(suite.T(), 8.25, current.TaxRate())
	assert.Empty(suite.T(), suite.notifier.List())
}

func (suite *DraftServiceTestSuite) TestInit_InvalidWarns() {
	suite.repo.On("Load", suite.ctx).Return(repositories.LoadResult{
		Status:  repositories.LoadStatusInvalid,
		Warning: repositories.WarningInvalidDraft,
	})

	suite.service.Init(suite.ctx)

	n := suite.lastNotification()
	assert.Equal(suite.T(), models.TitleWarning, n.Title)
	assert.Equal(suite.T(), repositories.WarningInvalidDraft, n.Description)
	assert.True(suite.T(), n.IsDestructive())
	assert.Len(suite.T(), suite.service.Current().LineItems(), 1)
}

func (suite *DraftServiceTestSuite) TestCurrent_IsSnapshot() {
	snapshot := suite.service.Current()
	snapshot.AddLineItem()
	snapshot.BusinessName = "mutated"

	assert.Len(suite.T(), suite.service.Current().LineItems(), 1)
	assert.Empty(suite.T(), suite.service.Current().BusinessName)
}

func (suite *DraftServiceTestSuite) TestMutations_KeepTotalsDerived() {
	first := suite.service.Current().LineItems()[0]

	inv, found, err := suite.service.UpdateLineItem(first.ID, models.LineItemFieldQuantity, 2)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), found)
	inv, _, err = suite.service.UpdateLineItem(first.ID, models.LineItemFieldPrice, "50")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100.0, inv.Subtotal())

	inv, added := suite.service.AddLineItem()
	assert.Len(suite.T(), inv.LineItems(), 2)
	inv, _, err = suite.service.UpdateLineItem(added.ID, models.LineItemFieldPrice, 30)
	require.NoError(suite.T(), err)

	assert.InDelta(suite.T(), 130.0, inv.Subtotal(), 1e-9)
	assert.InDelta(suite.T(), 10.725, inv.Tax(), 1e-9)
	assert.InDelta(suite.T(), 140.725, inv.Total(), 1e-9)

	inv = suite.service.SetTaxRate(0)
	assert.Equal(suite.T(), 130.0, inv.Total())

	inv, removed := suite.service.RemoveLineItem(added.ID)
	assert.True(suite.T(), removed)
	assert.Equal(suite.T(), 100.0, inv.Total())

	assert.Equal(suite.T(), inv.Totals(), suite.service.Current().Totals())
}

func (suite *DraftServiceTestSuite) TestUpdateDetails_CanonicalizesDates() {
	invoiceDate, dueDate := "03/10/2024", "2024-03-25T09:30:00Z"

	inv, err := suite.service.UpdateDetails(models.DetailsPatch{InvoiceDate: &invoiceDate, DueDate: &dueDate})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2024-03-10", inv.InvoiceDate)
	assert.Equal(suite.T(), "2024-03-25", inv.DueDate)
	assert.Equal(suite.T(), "2024-03-10", suite.service.Current().InvoiceDate)
}

func (suite *DraftServiceTestSuite) TestUpdateDetails_RejectsInvalidDate() {
	before := suite.service.Current()
	name, badDate := "Acme Co", "2024-13-45"

	inv, err := suite.service.UpdateDetails(models.DetailsPatch{BusinessName: &name, InvoiceDate: &badDate})

	assert.Nil(suite.T(), inv)
	assert.True(suite.T(), ierr.IsValidation(err))
	after := suite.service.Current()
	assert.Equal(suite.T(), before.InvoiceDate, after.InvoiceDate)
	assert.Empty(suite.T(), after.BusinessName)
}

func (suite *DraftServiceTestSuite) TestUpdateLineItem_UnknownField() {
	id := suite.service.Current().LineItems()[0].ID

	inv, found, err := suite.service.UpdateLineItem(id, "amount", 10)

	assert.Nil(suite.T(), inv)
	assert.False(suite.T(), found)
	assert.True(suite.T(), ierr.IsValidation(err))
}

func (suite *DraftServiceTestSuite) TestSave_Success() {
	expected := suite.fillSavable()
	suite.repo.On("Save", suite.ctx, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.ID == expected.ID && inv.Total() == expected.Total()
	})).Return(nil)

	require.NoError(suite.T(), suite.service.Save(suite.ctx))

	n := suite.lastNotification()
	assert.Equal(suite.T(), models.TitleSuccess, n.Title)
	assert.Equal(suite.T(), "Invoice saved successfully", n.Description)
}

func (suite *DraftServiceTestSuite) TestSave_GateFailureLeavesDraft() {
	before := suite.service.Current()

	err := suite.service.Save(suite.ctx)

	assert.ErrorIs(suite.T(), err, validator.ErrBusinessNameRequired)
	assert.True(suite.T(), ierr.IsValidation(err))
	n := suite.lastNotification()
	assert.Equal(suite.T(), models.TitleMissingInformation, n.Title)
	assert.Equal(suite.T(), "business name required", n.Description)
	assert.True(suite.T(), n.IsDestructive())
	assert.Equal(suite.T(), before.LineItems(), suite.service.Current().LineItems())
	suite.repo.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything)
}

func (suite *DraftServiceTestSuite) TestSave_StorageFaultLeavesDraft() {
	before := suite.fillSavable()
	storageErr := ierr.NewError("quota").WithHint("Storage quota exceeded").Mark(ierr.ErrStorage)
	suite.repo.On("Save", suite.ctx, mock.Anything).Return(storageErr)

	err := suite.service.Save(suite.ctx)

	assert.True(suite.T(), ierr.IsStorage(err))
	n := suite.lastNotification()
	assert.Equal(suite.T(), models.TitleError, n.Title)
	assert.Equal(suite.T(), "Failed to save invoice", n.Description)

	after := suite.service.Current()
	assert.Equal(suite.T(), before.ID, after.ID)
	assert.Equal(suite.T(), before.LineItems(), after.LineItems())
	assert.Equal(suite.T(), before.Totals(), after.Totals())
}

func (suite *DraftServiceTestSuite) TestNewInvoice_ClearsAndResets() {
	old := suite.fillSavable()
	suite.repo.On("Clear", suite.ctx).Return(nil)

	fresh, err := suite.service.NewInvoice(suite.ctx)

	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), old.ID, fresh.ID)
	assert.Empty(suite.T(), fresh.BusinessName)
	assert.Len(suite.T(), fresh.LineItems(), 1)
	assert.Equal(suite.T(), fresh.ID, suite.service.Current().ID)
}

func (suite *DraftServiceTestSuite) TestNewInvoice_ClearFaultStillResets() {
	old := suite.fillSavable()
	suite.repo.On("Clear", suite.ctx).Return(ierr.NewError("boom").Mark(ierr.ErrStorage))

	fresh, err := suite.service.NewInvoice(suite.ctx)

	assert.True(suite.T(), ierr.IsStorage(err))
	assert.NotEqual(suite.T(), old.ID, fresh.ID)
	assert.Equal(suite.T(), fresh.ID, suite.service.Current().ID)
	assert.Equal(suite.T(), "Failed to clear invoice data.", suite.lastNotification().Description)
}

func (suite *DraftServiceTestSuite) TestRenderPDF() {
	inv := suite.fillSavable()

	name, data, err := suite.service.RenderPDF(suite.ctx)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Invoice-"+inv.InvoiceNumber+".pdf", name)
	assert.True(suite.T(), len(data) > 4 && string(data[:4]) == "%PDF")
}

func (suite *DraftServiceTestSuite) TestExportPDF_Success() {
	inv := suite.fillSavable()
	fileName := "Invoice-" + inv.InvoiceNumber + ".pdf"
	suite.sink.On("Put", mock.Anything, fileName, mock.AnythingOfType("[]uint8")).Return("exports/"+fileName, nil)

	require.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))

	assert.Equal(suite.T(), models.TitleGeneratingPDF, suite.lastNotification().Title)
	assert.Equal(suite.T(), []time.Duration{500 * time.Millisecond}, suite.runner.delays)

	suite.runner.flush()

	n := suite.lastNotification()
	assert.Equal(suite.T(), models.TitleSuccess, n.Title)
	assert.Equal(suite.T(), "PDF downloaded successfully", n.Description)
}

func (suite *DraftServiceTestSuite) TestExportPDF_RejectsConcurrentExport() {
	suite.fillSavable()
	suite.sink.On("Put", mock.Anything, mock.Anything, mock.Anything).Return("somewhere", nil).Once()

	require.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))

	err := suite.service.ExportPDF(suite.ctx)
	assert.True(suite.T(), ierr.IsInvalidOperation(err))
	assert.Equal(suite.T(), "A PDF export is already in progress", ierr.DisplayMessage(err))

	suite.runner.flush()
	suite.sink.On("Put", mock.Anything, mock.Anything, mock.Anything).Return("somewhere", nil).Once()
	assert.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))
	suite.runner.flush()
}

func (suite *DraftServiceTestSuite) TestExportPDF_ReclaimsGuardFromLostExport() {
	suite.fillSavable()
	suite.sink.On("Put", mock.Anything, mock.Anything, mock.Anything).Return("somewhere", nil)

	clock := time.Now()
	suite.service.(*draftService).now = func() time.Time { return clock }

	// the first export is never run, as if the scheduler stopped first
	require.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))
	assert.True(suite.T(), ierr.IsInvalidOperation(suite.service.ExportPDF(suite.ctx)))

	clock = clock.Add(500*time.Millisecond + defaultExportTimeout + time.Second)
	require.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))
	assert.True(suite.T(), ierr.IsInvalidOperation(suite.service.ExportPDF(suite.ctx)))

	// a late finish of the lost export must not release the newer guard
	lost := suite.runner.tasks[0]
	lost(context.Background())
	assert.True(suite.T(), ierr.IsInvalidOperation(suite.service.ExportPDF(suite.ctx)))

	suite.runner.tasks = suite.runner.tasks[1:]
	suite.runner.flush()
	assert.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))
	suite.runner.flush()
}

func (suite *DraftServiceTestSuite) TestExportPDF_UsesSnapshotAtTrigger() {
	suite.fillSavable()
	var captured []byte
	suite.sink.On("Put", mock.Anything, mock.Anything, mock.Anything).Return("somewhere", nil).Run(func(args mock.Arguments) {
		captured = args.Get(2).([]byte)
	})

	require.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))
	suite.service.AddLineItem()
	suite.runner.flush()

	assert.NotEmpty(suite.T(), captured)
	assert.Len(suite.T(), suite.service.Current().LineItems(), 2)
}

func (suite *DraftServiceTestSuite) TestExportPDF_SinkFailure() {
	suite.fillSavable()
	suite.sink.On("Put", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

	require.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))
	suite.runner.flush()

	n := suite.lastNotification()
	assert.Equal(suite.T(), models.TitleError, n.Title)
	assert.Equal(suite.T(), "Failed to generate PDF", n.Description)
	assert.True(suite.T(), n.IsDestructive())
}

func (suite *DraftServiceTestSuite) TestExportPDF_ScheduleFailureReleasesGuard() {
	suite.runner.err = errors.New("scheduler stopped")

	err := suite.service.ExportPDF(suite.ctx)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), "Failed to generate PDF", suite.lastNotification().Description)

	suite.runner.err = nil
	assert.NoError(suite.T(), suite.service.ExportPDF(suite.ctx))
}

func (suite *DraftServiceTestSuite) TestSendEmail_RequiresClientEmail() {
	err := suite.service.SendEmail(suite.ctx)

	assert.True(suite.T(), ierr.IsValidation(err))
	assert.Equal(suite.T(), "client email is required", ierr.DisplayMessage(err))
	assert.Equal(suite.T(), "Client email is required to send invoice", suite.lastNotification().Description)
	assert.Empty(suite.T(), suite.runner.names)
}

func (suite *DraftServiceTestSuite) TestSendEmail_Success() {
	suite.fillSavable()
	suite.mailer.On("SendInvoice", mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.ClientEmail == "ap@globex.test"
	})).Return(nil)

	require.NoError(suite.T(), suite.service.SendEmail(suite.ctx))
	assert.Equal(suite.T(), models.TitleSendingEmail, suite.lastNotification().Title)
	assert.Equal(suite.T(), []time.Duration{2 * time.Second}, suite.runner.delays)

	suite.runner.flush()

	n := suite.lastNotification()
	assert.Equal(suite.T(), models.TitleSuccess, n.Title)
	assert.Equal(suite.T(), "Invoice sent to ap@globex.test", n.Description)
}

func (suite *DraftServiceTestSuite) TestSendEmail_MailerFailure() {
	suite.fillSavable()
	suite.mailer.On("SendInvoice", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	require.NoError(suite.T(), suite.service.SendEmail(suite.ctx))
	suite.runner.flush()

	assert.Equal(suite.T(), "Failed to send invoice", suite.lastNotification().Description)
}
