package utils

import "testing"

func TestIsValidFileExtension(t *testing.T) {
	// the allow-list the avatar upload handler uses
	avatarExtensions := []string{".jpg", ".jpeg", ".png", ".webp"}

	tests := []struct {
		name     string
		filename string
		allowed  []string
		expect   bool
	}{
		{
			name:     "jpg accepted with dotted allow-list",
			filename: "photo.jpg",
			allowed:  avatarExtensions,
			expect:   true,
		},
		{
			name:     "png accepted case-insensitively",
			filename: "Avatar.PNG",
			allowed:  avatarExtensions,
			expect:   true,
		},
		{
			name:     "gif rejected",
			filename: "animation.gif",
			allowed:  avatarExtensions,
			expect:   false,
		},
		{
			name:     "no extension rejected",
			filename: "photo",
			allowed:  avatarExtensions,
			expect:   false,
		},
		{
			name:     "empty filename rejected",
			filename: "",
			allowed:  avatarExtensions,
			expect:   false,
		},
		{
			name:     "undotted allow-list entries also match",
			filename: "photo.jpg",
			allowed:  []string{"jpg", "png"},
			expect:   true,
		},
		{
			name:     "only the final extension counts",
			filename: "photo.jpg.exe",
			allowed:  avatarExtensions,
			expect:   false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidFileExtension(tc.filename, tc.allowed); got != tc.expect {
				t.Fatalf("expected %v for %q, got %v", tc.expect, tc.filename, got)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for role, expect := range map[string]bool{
		"teacher": true,
		"student": true,
		"admin":   false,
		"":        false,
	} {
		if got := IsValidRole(role); got != expect {
			t.Fatalf("IsValidRole(%q) = %v, expected %v", role, got, expect)
		}
	}
}
