package ui

// PasswordField tracks whether a password input shows its text.
type PasswordField struct {
	visible bool
}

func (p *PasswordField) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

func (p *PasswordField) Visible() bool {
	return p.visible
}

// InputType is the HTML input type matching the current visibility.
func (p *PasswordField) InputType() string {
	if p.visible {
		return "text"
	}
	return "password"
}
