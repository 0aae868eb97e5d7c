// engforum/handlers/admin_test.go
package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// adminAction posts a moderation form and returns the followed page
// body, which carries the flash for the action.
func adminAction(t *testing.T, client *http.Client, baseURL, action string, form url.Values) string {
	t.Helper()
	resp, err := client.PostForm(baseURL+"/admin/"+action, form)
	if err != nil {
		t.Fatalf("Admin action %q failed: %v", action, err)
	}
	return readBody(t, resp)
}

// TestAdminGate verifies that anonymous and non-admin principals are
// bounced off the whole admin subtree without side effects.
func TestAdminGate(t *testing.T) {
	app := setupTestApp(t)
	ts, client := setupServer(t, app)
	createUser(t, app, "member", "password1", false)
	th := createThread(t, app, "t1", "member")

	// Anonymous GET.
	resp, err := noRedirect(client).Get(ts.URL + "/admin")
	if err != nil {
		t.Fatalf("Admin panel request failed: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != 303 || resp.Header.Get("Location") != "/" {
		t.Errorf("Expected anonymous admin access to 303 home, got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	// Logged-in non-admin POST.
	loginAs(t, client, ts.URL, "member", "password1")
	token := csrfToken(t, client, ts.URL)
	resp, err = noRedirect(client).PostForm(ts.URL+"/admin/mark-violation", url.Values{
		"csrf_token":       {token},
		"thread_id":        {th.ID},
		"violation_reason": {"should not apply"},
	})
	if err != nil {
		t.Fatalf("Admin action request failed: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != 303 || resp.Header.Get("Location") != "/" {
		t.Errorf("Expected non-admin action to 303 home, got %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	got, _ := app.db.GetThread(th.ID)
	if got.IsViolation {
		t.Error("A gated request must not mutate the thread")
	}
}

func TestAdminPanelStats(t *testing.T) {
	app := setupTestApp(t)
	ts, client := setupServer(t, app)
	createUser(t, app, "admin", "password1", true)
	createUser(t, app, "member", "password1", false)
	createThread(t, app, "t1", "member")
	t2 := createThread(t, app, "t2", "member")
	if err := app.db.MarkViolation(t2.ID, "spam", "admin"); err != nil {
		t.Fatalf("MarkViolation failed: %v", err)
	}

	loginAs(t, client, ts.URL, "admin", "password1")
	resp, err := client.Get(ts.URL + "/admin")
	if err != nil {
		t.Fatalf("Admin panel request failed: %v", err)
	}
	body := readBody(t, resp)

	for _, want := range []string{"Admin Panel", "Thread t1", "Thread t2", "member@example.edu", "spam"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected admin panel to contain %q", want)
		}
	}
}

func TestMarkAndRemoveViolation(t *testing.T) {
	app := setupTestApp(t)
	ts, client := setupServer(t, app)
	createUser(t, app, "admin", "password1", true)
	th := createThread(t, app, "t1", "someone")

	loginAs(t, client, ts.URL, "admin", "password1")
	token := csrfToken(t, client, ts.URL)

	body := adminAction(t, client, ts.URL, "mark-violation", url.Values{
		"csrf_token":       {token},
		"thread_id":        {th.ID},
		"violation_reason": {"duplicate post"},
	})
	if !strings.Contains(body, "Thread marked as violation successfully!") {
		t.Error("Expected the mark-violation success flash")
	}
	got, _ := app.db.GetThread(th.ID)
	if !got.IsViolation || got.ViolationReason.String != "duplicate post" || got.ViolationBy.String != "admin" {
		t.Errorf("Violation not recorded as expected: %+v", got)
	}

	body = adminAction(t, client, ts.URL, "remove-violation", url.Values{
		"csrf_token": {token},
		"thread_id":  {th.ID},
	})
	if !strings.Contains(body, "Violation removed successfully!") {
		t.Error("Expected the remove-violation success flash")
	}
	got, _ = app.db.GetThread(th.ID)
	if got.IsViolation || got.ViolationReason.Valid || got.ViolationBy.Valid {
		t.Errorf("Violation not fully cleared: %+v", got)
	}

	// Missing thread surfaces the failure flash.
	body = adminAction(t, client, ts.URL, "mark-violation", url.Values{
		"csrf_token":       {token},
		"thread_id":        {"no-such-thread"},
		"violation_reason": {"x"},
	})
	if !strings.Contains(body, "Failed to mark thread as violation.") {
		t.Error("Expected the mark-violation failure flash")
	}
	body = adminAction(t, client, ts.URL, "remove-violation", url.Values{
		"csrf_token": {token},
		"thread_id":  {"no-such-thread"},
	})
	if !strings.Contains(body, "Failed to remove violation.") {
		t.Error("Expected the remove-violation failure flash")
	}
}

func TestDeleteThreadAction(t *testing.T) {
	app := setupTestApp(t)
	ts, client := setupServer(t, app)
	createUser(t, app, "admin", "password1", true)
	th := createThread(t, app, "t1", "someone")

	loginAs(t, client, ts.URL, "admin", "password1")
	token := csrfToken(t, client, ts.URL)

	body := adminAction(t, client, ts.URL, "delete-thread", url.Values{
		"csrf_token": {token},
		"thread_id":  {th.ID},
	})
	if !strings.Contains(body, "Thread deleted successfully!") {
		t.Error("Expected the delete-thread success flash")
	}
	if _, err := app.db.GetThread(th.ID); err == nil {
		t.Error("Expected the thread to be gone")
	}

	body = adminAction(t, client, ts.URL, "delete-thread", url.Values{
		"csrf_token": {token},
		"thread_id":  {th.ID},
	})
	if !strings.Contains(body, "Failed to delete thread.") {
		t.Error("Expected the delete-thread failure flash")
	}
}

func TestMakeAdmin(t *testing.T) {
	app := setupTestApp(t)
	ts, client := setupServer(t, app)
	createUser(t, app, "admin", "password1", true)
	member := createUser(t, app, "bob", "password1", false)

	loginAs(t, client, ts.URL, "admin", "password1")
	token := csrfToken(t, client, ts.URL)

	body := adminAction(t, client, ts.URL, "make-admin", url.Values{
		"csrf_token": {token},
		"user_id":    {member.ID},
	})
	if !strings.Contains(body, "bob is now an admin!") {
		t.Error("Expected the make-admin success flash")
	}
	got, _ := app.db.GetUserByID(member.ID)
	if !got.IsAdmin {
		t.Error("Expected bob to be an admin")
	}

	body = adminAction(t, client, ts.URL, "make-admin", url.Values{
		"csrf_token": {token},
		"user_id":    {member.ID},
	})
	if !strings.Contains(body, "User is already an admin.") {
		t.Error("Expected the already-admin flash")
	}

	body = adminAction(t, client, ts.URL, "make-admin", url.Values{
		"csrf_token": {token},
		"user_id":    {"no-such-user"},
	})
	if !strings.Contains(body, "User not found.") {
		t.Error("Expected the user-not-found flash")
	}
}

func TestRemoveAdmin(t *testing.T) {
	app := setupTestApp(t)
	ts, client := setupServer(t, app)
	self := createUser(t, app, "admin", "password1", true)
	other := createUser(t, app, "cathy", "password1", true)
	member := createUser(t, app, "bob", "password1", false)

	loginAs(t, client, ts.URL, "admin", "password1")
	token := csrfToken(t, client, ts.URL)

	// Self-demotion is refused.
	body := adminAction(t, client, ts.URL, "remove-admin", url.Values{
		"csrf_token": {token},
		"user_id":    {self.ID},
	})
	if !strings.Contains(body, "You cannot remove your own admin privileges.") {
		t.Error("Expected the self-demotion refusal flash")
	}
	got, _ := app.db.GetUserByID(self.ID)
	if !got.IsAdmin {
		t.Error("Self-demotion must not change the acting account")
	}

	body = adminAction(t, client, ts.URL, "remove-admin", url.Values{
		"csrf_token": {token},
		"user_id":    {member.ID},
	})
	if !strings.Contains(body, "User is not an admin.") {
		t.Error("Expected the not-an-admin flash")
	}

	body = adminAction(t, client, ts.URL, "remove-admin", url.Values{
		"csrf_token": {token},
		"user_id":    {other.ID},
	})
	if !strings.Contains(body, "Admin privileges removed from cathy.") {
		t.Error("Expected the remove-admin success flash")
	}
	got, _ = app.db.GetUserByID(other.ID)
	if got.IsAdmin {
		t.Error("Expected cathy to be demoted")
	}
}

func TestDeleteUser(t *testing.T) {
	app := setupTestApp(t)
	ts, client := setupServer(t, app)
	self := createUser(t, app, "admin", "password1", true)
	member := createUser(t, app, "bob", "password1", false)

	loginAs(t, client, ts.URL, "admin", "password1")
	token := csrfToken(t, client, ts.URL)

	body := adminAction(t, client, ts.URL, "delete-user", url.Values{
		"csrf_token": {token},
		"user_id":    {self.ID},
	})
	if !strings.Contains(body, "You cannot delete your own account.") {
		t.Error("Expected the self-deletion refusal flash")
	}

	body = adminAction(t, client, ts.URL, "delete-user", url.Values{
		"csrf_token": {token},
		"user_id":    {member.ID},
	})
	if !strings.Contains(body, "User bob has been deleted.") {
		t.Error("Expected the delete-user success flash")
	}
	if _, err := app.db.GetUserByID(member.ID); err == nil {
		t.Error("Expected bob to be gone")
	}

	body = adminAction(t, client, ts.URL, "delete-user", url.Values{
		"csrf_token": {token},
		"user_id":    {member.ID},
	})
	if !strings.Contains(body, "User not found.") {
		t.Error("Expected the user-not-found flash")
	}
}
