package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"visitor-management/models"
	"visitor-management/pkg/qr"
	"visitor-management/repository/memory"
	"visitor-management/service"
	"visitor-management/service/mocks"
)

const (
	hdrUser = "X-Test-User"
	hdrRole = "X-Test-Role"
)

type HandlerSuite struct {
	suite.Suite
	app          *fiber.App
	passes       *memory.PassStore
	logs         *memory.CheckLogStore
	visitors     *fakeVisitors
	appointments *fakeAppointments
	notifier     *mocks.MockNotifier

	admin     primitive.ObjectID
	guard     primitive.ObjectID
	employee  primitive.ObjectID
	visitorID primitive.ObjectID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.notifier = mocks.NewMockNotifier(ctrl)
	s.passes = memory.NewPassStore()
	s.logs = memory.NewCheckLogStore()
	s.visitors = newFakeVisitors()
	s.appointments = newFakeAppointments()
	s.admin, s.guard, s.employee = primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	visitor := &models.Visitor{Name: "Rina Kusumo", Email: "rina@example.com", CreatedBy: s.employee}
	s.Require().NoError(s.visitors.Create(context.Background(), visitor))
	s.visitorID = visitor.ID

	ledger := service.NewLedger(s.logs)
	engine := service.NewPassEngine(service.EngineDeps{
		Passes:   s.passes,
		Ledger:   ledger,
		QR:       qr.NewGenerator(),
		Visitors: s.visitors,
		Metrics:  service.NewMetrics(prometheus.NewRegistry()),
	})

	passes := NewPassHandler(engine, passViews{store: s.passes})
	logs := NewCheckLogHandler(engine, ledger, logViews{store: s.logs})
	visitors := NewVisitorHandler(s.visitors, nil)
	appointments := NewAppointmentHandler(s.appointments, s.visitors, s.notifier)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id, err := primitive.ObjectIDFromHex(c.Get(hdrUser)); err == nil {
			c.Locals("user", &models.Claims{UserID: id, Role: c.Get(hdrRole)})
		}
		return c.Next()
	})

	app.Get("/visitors", visitors.GetVisitors)
	app.Post("/visitors", visitors.CreateVisitor)
	app.Get("/visitors/:id", visitors.GetVisitor)
	app.Delete("/visitors/:id", visitors.DeleteVisitor)

	app.Post("/appointments", appointments.CreateAppointment)
	app.Put("/appointments/:id/status", appointments.UpdateAppointmentStatus)
	app.Get("/appointments/:id/occurrences", appointments.GetOccurrences)

	app.Get("/passes", passes.GetPasses)
	app.Post("/passes", passes.CreatePass)
	app.Get("/passes/:id", passes.GetPass)
	app.Put("/passes/:id", passes.UpdatePass)
	app.Delete("/passes/:id", passes.DeletePass)
	app.Get("/passes/:id/qr", passes.GetPassQr)
	app.Get("/passes/:id/state", passes.GetPassState)
	app.Get("/passes/:id/history", logs.GetPassHistory)
	app.Post("/passes/:id/cancel", passes.CancelPass)
	app.Post("/passes/:id/reconcile", passes.ReconcilePass)

	app.Post("/checklogs/scan", logs.ScanPass)
	app.Get("/checklogs", logs.GetCheckLogs)
	app.Get("/checklogs/:id", logs.GetCheckLog)
	app.Delete("/checklogs/:id", logs.DeleteCheckLog)
	s.app = app
}

// call performs a request as the given user and decodes the JSON reply
// into out when out is not nil.
func (s *HandlerSuite) call(method, path string, body any, user primitive.ObjectID, role string, out any) int {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if !user.IsZero() {
		req.Header.Set(hdrUser, user.Hex())
		req.Header.Set(hdrRole, role)
	}

	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *HandlerSuite) issue(from, to time.Time) models.Pass {
	var pass models.Pass
	code := s.call(http.MethodPost, "/passes", fiber.Map{
		"visitor":    s.visitorID.Hex(),
		"valid_from": from.UTC().Format(time.RFC3339),
		"valid_to":   to.UTC().Format(time.RFC3339),
	}, s.employee, models.RoleEmployee, &pass)
	s.Require().Equal(http.StatusCreated, code)
	return pass
}

func (s *HandlerSuite) scan(passID primitive.ObjectID, out any) int {
	return s.call(http.MethodPost, "/checklogs/scan", fiber.Map{"pass_id": passID.Hex(), "gate": "North Gate"}, s.guard, models.RoleSecurity, out)
}

func (s *HandlerSuite) TestCreatePass_MissingFields() {
	var body struct {
		Error       string   `json:"error"`
		EmptyFields []string `json:"empty_fields"`
	}
	code := s.call(http.MethodPost, "/passes", fiber.Map{}, s.employee, models.RoleEmployee, &body)

	s.Equal(http.StatusBadRequest, code)
	s.Equal(service.MsgMissingFields, body.Error)
	s.Equal([]string{"visitor", "valid_from", "valid_to"}, body.EmptyFields)
}

func (s *HandlerSuite) TestCreatePass_RejectsInvertedWindow() {
	now := time.Now()
	code := s.call(http.MethodPost, "/passes", fiber.Map{
		"visitor":    s.visitorID.Hex(),
		"valid_from": now.Add(time.Hour).UTC().Format(time.RFC3339),
		"valid_to":   now.UTC().Format(time.RFC3339),
	}, s.employee, models.RoleEmployee, nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *HandlerSuite) TestCreatePass_Issued() {
	now := time.Now()
	pass := s.issue(now.Add(-time.Hour), now.Add(time.Hour))

	s.True(strings.HasPrefix(pass.PassNumber, "PASS-"), pass.PassNumber)
	s.Equal(models.PassStatusActive, pass.Status)
	s.True(strings.HasPrefix(pass.QRImage, "data:image/png;base64,"))
	s.Equal(s.employee, pass.CreatedBy)

	var qrResp models.PassQRResponse
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/passes/"+pass.ID.Hex()+"/qr", nil, s.guard, models.RoleSecurity, &qrResp))
	s.Equal(pass.PassNumber, qrResp.PassNumber)
	s.Equal(pass.QRImage, qrResp.QRImage)
}

func (s *HandlerSuite) TestScan_AlternatesInAndOut() {
	now := time.Now()
	pass := s.issue(now.Add(-time.Hour), now.Add(time.Hour))

	var first models.ScanResponse
	s.Require().Equal(http.StatusOK, s.scan(pass.ID, &first))
	s.Equal(models.CheckActionIn, first.Action)
	s.Equal(models.PassStatusActive, first.Pass.Status)
	s.Equal("Visitor checked in successfully", first.Message)
	s.Equal("North Gate", first.Log.Gate)
	s.Require().NotNil(first.Log.SecurityUserID)
	s.Equal(s.guard, *first.Log.SecurityUserID)

	var second models.ScanResponse
	s.Require().Equal(http.StatusOK, s.scan(pass.ID, &second))
	s.Equal(models.CheckActionOut, second.Action)
	s.Equal(models.PassStatusCheckedOut, second.Pass.Status)
	s.Equal("Visitor checked out successfully", second.Message)

	var history []models.CheckLog
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/passes/"+pass.ID.Hex()+"/history", nil, s.admin, models.RoleAdmin, &history))
	s.Require().Len(history, 2)
	s.Equal(models.CheckActionIn, history[0].Action)
	s.Equal(models.CheckActionOut, history[1].Action)
}

func (s *HandlerSuite) TestScan_ByQRData() {
	now := time.Now()
	pass := s.issue(now.Add(-time.Hour), now.Add(time.Hour))

	var resp models.ScanResponse
	code := s.call(http.MethodPost, "/checklogs/scan", fiber.Map{"qr_data": pass.QRData}, s.guard, models.RoleSecurity, &resp)

	s.Require().Equal(http.StatusOK, code)
	s.Equal(models.CheckActionIn, resp.Action)
	s.Equal(pass.ID, resp.Pass.ID)
	s.Equal(service.DefaultGate, resp.Log.Gate)
}

func (s *HandlerSuite) TestScan_Expired() {
	now := time.Now()
	pass := s.issue(now.Add(-2*time.Hour), now.Add(-time.Hour))

	var body map[string]any
	s.Equal(http.StatusBadRequest, s.scan(pass.ID, &body))
	s.Equal("Pass has expired", body["error"])

	stored, err := s.passes.FindByID(context.Background(), pass.ID)
	s.Require().NoError(err)
	s.Equal(models.PassStatusExpired, stored.Status)

	entries, err := s.logs.History(context.Background(), pass.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *HandlerSuite) TestScan_NotYetValid() {
	now := time.Now()
	pass := s.issue(now.Add(time.Hour), now.Add(2*time.Hour))

	var body map[string]any
	s.Equal(http.StatusBadRequest, s.scan(pass.ID, &body))
	s.Equal("Pass is not yet valid", body["error"])

	stored, err := s.passes.FindByID(context.Background(), pass.ID)
	s.Require().NoError(err)
	s.Equal(models.PassStatusActive, stored.Status)
	s.Equal(pass.Version, stored.Version)
}

func (s *HandlerSuite) TestScan_CancelledPass() {
	now := time.Now()
	pass := s.issue(now.Add(-time.Hour), now.Add(time.Hour))

	var cancelled models.Pass
	s.Require().Equal(http.StatusOK, s.call(http.MethodPost, "/passes/"+pass.ID.Hex()+"/cancel", nil, s.employee, models.RoleEmployee, &cancelled))
	s.Equal(models.PassStatusCancelled, cancelled.Status)

	s.Equal(http.StatusConflict, s.scan(pass.ID, nil))
	s.Equal(http.StatusConflict, s.call(http.MethodPost, "/passes/"+pass.ID.Hex()+"/cancel", nil, s.employee, models.RoleEmployee, nil))
}

func (s *HandlerSuite) TestScan_BadRequests() {
	var body map[string]any
	s.Equal(http.StatusBadRequest, s.call(http.MethodPost, "/checklogs/scan", fiber.Map{"gate": "East"}, s.guard, models.RoleSecurity, &body))
	s.Equal(service.MsgMissingFields, body["error"])

	s.Equal(http.StatusBadRequest, s.call(http.MethodPost, "/checklogs/scan", fiber.Map{"pass_id": "not-an-id"}, s.guard, models.RoleSecurity, nil))
	s.Equal(http.StatusNotFound, s.scan(primitive.NewObjectID(), nil))
	s.Equal(http.StatusNotFound, s.call(http.MethodPost, "/checklogs/scan", fiber.Map{"qr_data": `{"passNumber":"PASS-0-0"}`}, s.guard, models.RoleSecurity, nil))
}

func (s *HandlerSuite) TestScan_RequiresUser() {
	s.Equal(http.StatusUnauthorized, s.call(http.MethodPost, "/checklogs/scan", fiber.Map{"pass_id": primitive.NewObjectID().Hex()}, primitive.NilObjectID, "", nil))
}

func (s *HandlerSuite) TestGetPasses_ScopedToCreator() {
	now := time.Now()
	s.issue(now.Add(-time.Hour), now.Add(time.Hour))

	var mine, theirs, all []models.PassWithDetails
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/passes", nil, s.employee, models.RoleEmployee, &mine))
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/passes", nil, s.guard, models.RoleSecurity, &theirs))
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/passes", nil, s.admin, models.RoleAdmin, &all))

	s.Len(mine, 1)
	s.Empty(theirs)
	s.Len(all, 1)

	s.Equal(http.StatusBadRequest, s.call(http.MethodGet, "/passes?status=lost", nil, s.admin, models.RoleAdmin, nil))
}

func (s *HandlerSuite) TestPassState_AndReconcileAfterLogDelete() {
	now := time.Now()
	pass := s.issue(now.Add(-time.Hour), now.Add(time.Hour))

	var in, out models.ScanResponse
	s.Require().Equal(http.StatusOK, s.scan(pass.ID, &in))
	s.Require().Equal(http.StatusOK, s.scan(pass.ID, &out))

	var deleted models.CheckLog
	s.Require().Equal(http.StatusOK, s.call(http.MethodDelete, "/checklogs/"+out.Log.ID.Hex(), nil, s.admin, models.RoleAdmin, &deleted))
	s.Equal(out.Log.ID, deleted.ID)
	s.Equal(http.StatusNotFound, s.call(http.MethodGet, "/checklogs/"+out.Log.ID.Hex(), nil, s.admin, models.RoleAdmin, nil))

	var state service.PassState
	s.Require().Equal(http.StatusOK, s.call(http.MethodGet, "/passes/"+pass.ID.Hex()+"/state", nil, s.admin, models.RoleAdmin, &state))
	s.Equal(models.PassStatusCheckedOut, state.Pass.Status, "deleting a log entry leaves the stored status alone")
	s.Equal(models.PassStatusActive, state.DerivedStatus)
	s.True(state.InWindow)
	s.Require().NotNil(state.LastLog)
	s.Equal(in.Log.ID, state.LastLog.ID)

	var reconciled struct {
		Pass    models.Pass `json:"pass"`
		Changed bool        `json:"changed"`
	}
	s.Require().Equal(http.StatusOK, s.call(http.MethodPost, "/passes/"+pass.ID.Hex()+"/reconcile", nil, s.admin, models.RoleAdmin, &reconciled))
	s.True(reconciled.Changed)
	s.Equal(models.PassStatusActive, reconciled.Pass.Status)
}

func (s *HandlerSuite) TestCheckLogList_FiltersByAction() {
	now := time.Now()
	pass := s.issue(now.Add(-time.Hour), now.Add(time.Hour))
	s.Require().Equal(http.StatusOK, s.scan(pass.ID, nil))
	s.Require().Equal(http.StatusOK, s.scan(pass.ID, nil))
	s.Require().Equal(http.StatusOK, s.scan(pass.ID, nil))

	var ins []models.CheckLogWithDetails
	s.Require().Equal(http.StatusOK, s.call(http.MethodGet, "/checklogs?action=in&pass="+pass.ID.Hex(), nil, s.admin, models.RoleAdmin, &ins))
	s.Len(ins, 2)
	s.True(ins[0].CreatedAt.After(ins[1].CreatedAt), "newest first")

	s.Equal(http.StatusBadRequest, s.call(http.MethodGet, "/checklogs?action=SIDEWAYS", nil, s.admin, models.RoleAdmin, nil))
}

func (s *HandlerSuite) TestUpdateAndDeletePass() {
	now := time.Now()
	pass := s.issue(now.Add(-2*time.Hour), now.Add(-time.Hour))
	s.Require().Equal(http.StatusBadRequest, s.scan(pass.ID, nil))

	var reopened models.Pass
	code := s.call(http.MethodPut, "/passes/"+pass.ID.Hex(), fiber.Map{
		"valid_to": now.Add(time.Hour).UTC().Format(time.RFC3339),
	}, s.employee, models.RoleEmployee, &reopened)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(models.PassStatusActive, reopened.Status)

	var msg models.MessageResponse
	s.Equal(http.StatusOK, s.call(http.MethodDelete, "/passes/"+pass.ID.Hex(), nil, s.employee, models.RoleEmployee, &msg))
	s.Equal("Pass deleted successfully", msg.Message)
	s.Equal(http.StatusNotFound, s.call(http.MethodGet, "/passes/"+pass.ID.Hex(), nil, s.employee, models.RoleEmployee, nil))
	s.Equal(http.StatusNotFound, s.call(http.MethodGet, "/passes/zzz", nil, s.employee, models.RoleEmployee, nil))
}

func (s *HandlerSuite) TestCreateVisitor() {
	var body struct {
		Error       string   `json:"error"`
		EmptyFields []string `json:"empty_fields"`
	}
	code := s.call(http.MethodPost, "/visitors", fiber.Map{"name": "Budi", "email": "budi@example.com"}, s.employee, models.RoleEmployee, &body)
	s.Equal(http.StatusBadRequest, code)
	s.Equal("Please fill out all the fields!", body.Error)
	s.Equal([]string{"phone", "company", "id_type", "id_number"}, body.EmptyFields)

	full := fiber.Map{
		"name": "Budi Santoso", "email": "budi@example.com", "phone": "+62 811 000",
		"company": "Acme", "id_type": "KTP", "id_number": "3171000000000001",
	}
	var created models.Visitor
	s.Require().Equal(http.StatusCreated, s.call(http.MethodPost, "/visitors", full, s.employee, models.RoleEmployee, &created))
	s.Equal(s.employee, created.CreatedBy)
	s.False(created.ID.IsZero())

	s.Equal(http.StatusConflict, s.call(http.MethodPost, "/visitors", full, s.guard, models.RoleSecurity, nil))
}

func (s *HandlerSuite) TestVisitorOwnership() {
	path := "/visitors/" + s.visitorID.Hex()
	s.Equal(http.StatusOK, s.call(http.MethodGet, path, nil, s.employee, models.RoleEmployee, nil))
	s.Equal(http.StatusNotFound, s.call(http.MethodGet, path, nil, s.guard, models.RoleSecurity, nil))
	s.Equal(http.StatusOK, s.call(http.MethodGet, path, nil, s.admin, models.RoleAdmin, nil))

	var others []models.Visitor
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/visitors", nil, s.guard, models.RoleSecurity, &others))
	s.Empty(others)

	s.Equal(http.StatusNotFound, s.call(http.MethodDelete, path, nil, s.guard, models.RoleSecurity, nil))
	s.Equal(http.StatusOK, s.call(http.MethodDelete, path, nil, s.admin, models.RoleAdmin, nil))
}

func (s *HandlerSuite) TestAppointmentStatusFlow() {
	when := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	var appt models.Appointment
	code := s.call(http.MethodPost, "/appointments", fiber.Map{
		"visitor":         s.visitorID.Hex(),
		"host":            s.employee.Hex(),
		"purpose":         "Quarterly review",
		"date_time":       when.Format(time.RFC3339),
		"recurrence_rule": "FREQ=WEEKLY;COUNT=4",
	}, s.employee, models.RoleEmployee, &appt)
	s.Require().Equal(http.StatusCreated, code)
	s.Equal(models.AppointmentPending, appt.Status)

	s.notifier.EXPECT().AppointmentApproved(gomock.Any(), gomock.Any()).Times(1)

	path := "/appointments/" + appt.ID.Hex() + "/status"
	var approved models.Appointment
	s.Require().Equal(http.StatusOK, s.call(http.MethodPut, path, fiber.Map{"status": "approved"}, s.admin, models.RoleAdmin, &approved))
	s.Equal(models.AppointmentApproved, approved.Status)

	s.Equal(http.StatusConflict, s.call(http.MethodPut, path, fiber.Map{"status": "pending"}, s.admin, models.RoleAdmin, nil))
	s.Equal(http.StatusBadRequest, s.call(http.MethodPut, path, fiber.Map{"status": "done"}, s.admin, models.RoleAdmin, nil))

	var occ struct {
		Occurrences []time.Time `json:"occurrences"`
	}
	s.Require().Equal(http.StatusOK, s.call(http.MethodGet, "/appointments/"+appt.ID.Hex()+"/occurrences", nil, s.employee, models.RoleEmployee, &occ))
	s.Require().Len(occ.Occurrences, 4)
	s.True(occ.Occurrences[0].Equal(when))
	s.True(occ.Occurrences[3].Equal(when.AddDate(0, 0, 21)))
}

func (s *HandlerSuite) TestCreateAppointment_UnknownVisitor() {
	var body map[string]any
	code := s.call(http.MethodPost, "/appointments", fiber.Map{
		"visitor":   primitive.NewObjectID().Hex(),
		"host":      s.employee.Hex(),
		"purpose":   "Delivery",
		"date_time": time.Now().UTC().Format(time.RFC3339),
	}, s.employee, models.RoleEmployee, &body)
	s.Equal(http.StatusBadRequest, code)
	s.Equal("Visitor does not exist", body["error"])
}
