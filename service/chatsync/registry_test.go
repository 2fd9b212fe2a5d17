package chatsync

import (
	"testing"

	"MediChat/module/chat/model"
	errs "MediChat/tools/errs"
)

func TestRegistryReusesSameIdentity(t *testing.T) {
	url := startWS(t, authThen(t, drain))
	r := NewRegistry(Options{URL: url, Policy: fastPolicy()})
	defer r.Shutdown()

	id := model.Identity{UserID: 7, UserType: model.RolePatient}
	m1, err := r.Acquire(id)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	waitFor(t, "session open", func() bool { return m1.State() == StateOpen })

	m2, err := r.Acquire(id)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if m1 != m2 {
		t.Fatal("same identity should reuse the live manager")
	}
}

func TestRegistryReplacesOnIdentitySwitch(t *testing.T) {
	url := startWS(t, authThen(t, drain))
	r := NewRegistry(Options{URL: url, Policy: fastPolicy()})
	defer r.Shutdown()

	doctor := model.Identity{UserID: 1, UserType: model.RoleDoctor}
	patient := model.Identity{UserID: 7, UserType: model.RolePatient}

	m1, err := r.Acquire(doctor)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	waitFor(t, "doctor session open", func() bool { return m1.State() == StateOpen })

	m2, err := r.Acquire(patient)
	if err != nil {
		t.Fatalf("Acquire after switch: %v", err)
	}
	if m2 == m1 {
		t.Fatal("identity switch should build a fresh manager")
	}
	// old session is gone before the new one exists
	if m1.State() != StateClosed {
		t.Errorf("old session state = %v, want closed", m1.State())
	}
	waitFor(t, "patient session open", func() bool { return m2.State() == StateOpen })
	if r.Current() != m2 {
		t.Error("registry should track the replacement")
	}
}

func TestRegistryReacquiresAfterClose(t *testing.T) {
	url := startWS(t, authThen(t, drain))
	r := NewRegistry(Options{URL: url, Policy: fastPolicy()})
	defer r.Shutdown()

	id := model.Identity{UserID: 7, UserType: model.RolePatient}
	m1, err := r.Acquire(id)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	waitFor(t, "session open", func() bool { return m1.State() == StateOpen })
	m1.Teardown()

	m2, err := r.Acquire(id)
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	if m2 == m1 {
		t.Fatal("a terminal manager must not be handed out again")
	}
	waitFor(t, "fresh session open", func() bool { return m2.State() == StateOpen })
}

func TestRegistryAcquireConstructionFailure(t *testing.T) {
	r := NewRegistry(Options{URL: "http://wrong-scheme"})

	m, err := r.Acquire(model.Identity{UserID: 7, UserType: model.RolePatient})
	if errs.Code(err) != errs.NotConnectedError {
		t.Fatalf("err = %v, want not-connected code", err)
	}
	if m == nil {
		t.Fatal("caller still gets a manager to observe")
	}
	if r.Current() != nil {
		t.Error("failed construction must not become the current session")
	}
}

func TestRegistryShutdown(t *testing.T) {
	url := startWS(t, authThen(t, drain))
	r := NewRegistry(Options{URL: url, Policy: fastPolicy()})

	m, err := r.Acquire(model.Identity{UserID: 7, UserType: model.RolePatient})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	waitFor(t, "session open", func() bool { return m.State() == StateOpen })

	r.Shutdown()
	if m.State() != StateClosed {
		t.Errorf("state = %v, want closed", m.State())
	}
	if r.Current() != nil {
		t.Error("registry still holds a session after shutdown")
	}
}
