package build

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSpecEditApply(t *testing.T) {
	e := specEdit{
		Name:          "python-example",
		Version:       "2.0_rc1",
		Source:        "example-2.0-rc1.tar.gz",
		BuildRequires: []string{"python-setuptools"},
		Patches:       []string{"fix.patch", "docs.patch"},
		Docs:          []string{"README"},
		Maintainer:    "Joe Dev <joe@example.com>",
		Date:          time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	got, err := e.apply(bdistSpec)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []string{
		"%define name python-example",
		"%define version 2.0_rc1",
		"%define unmangled_version 20240101",
		"%define release 1",
		"",
		"Summary: Example",
		"Name: %{name}",
		"Version: %{version}",
		"Release: %{release}",
		"Source0: example-2.0-rc1.tar.gz",
		"Patch0: fix.patch",
		"Patch1: docs.patch",
		"License: Apache",
		"",
		"BuildRequires: python-setuptools",
		"%description",
		"Example project.",
		"",
		"%prep",
		"%setup -n %{name}-%{unmangled_version}",
		"%patch0 -p1",
		"%patch1 -p1",
		"",
		"%files -f INSTALLED_FILES",
		"%doc README",
		"%defattr(-,root,root)",
		"",
		"%changelog",
		"* Tue Jan 02 2024 Joe Dev <joe@example.com> 2.0_rc1-1",
		"- Auto-generated",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("apply mismatch (-want +got):\n%s", diff)
	}
}

func TestSpecEditKeepsChangelog(t *testing.T) {
	spec := bdistSpec + "\n%changelog\n* Mon Jan 01 2024 Upstream <up@example.com>\n- Release\n"
	got, err := specEdit{Name: "example", Version: "1"}.apply(spec)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n := strings.Count(strings.Join(got, "\n"), "%changelog"); n != 1 {
		t.Errorf("got %d changelog sections, want 1", n)
	}
}

func TestSpecEditMissingDescription(t *testing.T) {
	_, err := specEdit{Name: "example"}.apply("%define name example\n")
	if err == nil || !strings.Contains(err.Error(), "%description") {
		t.Fatalf("apply err = %v, want missing %%description", err)
	}
}
