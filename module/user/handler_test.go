package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"PChat/module/user/model"
	"PChat/module/user/service"
	"PChat/service/storage"
	"PChat/tools/security"
)

type stubPresence map[string]bool

func (s stubPresence) Online(id string) bool { return s[id] }

func profileFixture(t *testing.T, live stubPresence) *Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := storage.NewMemoryStores()
	err := st.Users.Create(context.Background(), &model.User{
		UserID:    "u1",
		Phone:     "+998901234567",
		FirstName: "Alice",
		// Stale stored status; the live registry is authoritative.
		Status:    model.StatusOnline,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc := service.New(st.Users, st.Sessions, security.DefaultOptions([]byte("s")), 5, time.Minute)
	return NewHandler(svc, live)
}

func getProfile(t *testing.T, h *Handler, id string) (int, publicUser) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/profiles/"+id, nil)
	c.Params = gin.Params{{Key: "id", Value: id}}
	h.Profile(c)

	var body struct {
		Data publicUser `json:"data"`
	}
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	}
	return w.Code, body.Data
}

func TestProfileStatusFromRegistry(t *testing.T) {
	h := profileFixture(t, stubPresence{})

	code, p := getProfile(t, h, "u1")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if p.Status != model.StatusOffline {
		t.Fatalf("status = %q, want offline despite stale stored online", p.Status)
	}

	h = profileFixture(t, stubPresence{"u1": true})
	_, p = getProfile(t, h, "u1")
	if p.Status != model.StatusOnline {
		t.Fatalf("status = %q, want online for a live connection", p.Status)
	}
}

func TestProfileUnknownUser(t *testing.T) {
	h := profileFixture(t, stubPresence{})
	code, _ := getProfile(t, h, "ghost")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}
