package connection

import (
	"fmt"
	"strings"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// CardKind identifies a card on the page.
type CardKind string

const (
	CardInstall          CardKind = "install"
	CardConnectState     CardKind = "connect-state"
	CardReconnectState   CardKind = "reconnect-state"
	CardGenerateState    CardKind = "generate-state"
	CardConnectEncrypt   CardKind = "connect-encrypt"
	CardReconnectEncrypt CardKind = "reconnect-encrypt"
	CardInvokeEncrypt    CardKind = "invoke-encrypt"
)

// Card is one visible card and whether its action is enabled.
type Card struct {
	Kind      CardKind
	Title     string
	Disabled  bool
	FullWidth bool
}

// Page is what the page renders for a State.
type Page struct {
	// Banner is the error message, empty when there is none.
	Banner string
	Cards  []Card
}

// ShouldDisplayReconnect reports whether d is a locally served snap.
func ShouldDisplayReconnect(d *snap.Descriptor) bool {
	return d != nil && d.IsLocal()
}

// View computes the page for s.
func View(s State) Page {
	var p Page
	if s.Err != nil {
		p.Banner = "An error happened: " + foundationerrors.Describe(s.Err)
	}

	if !s.FlaskDetected {
		p.Cards = append(p.Cards, Card{Kind: CardInstall, Title: "Install", FullWidth: true})
	}

	p.Cards = append(p.Cards, pluginCards(s, s.InstalledState, "State",
		CardConnectState, CardReconnectState,
		Card{Kind: CardGenerateState, Title: "Generate Some State"})...)
	p.Cards = append(p.Cards, pluginCards(s, s.InstalledEncrypt, "Encrypt",
		CardConnectEncrypt, CardReconnectEncrypt,
		Card{Kind: CardInvokeEncrypt, Title: "Invoke State Snap"})...)
	return p
}

func pluginCards(s State, installed *snap.Descriptor, name string, connect, reconnect CardKind, action Card) []Card {
	var cards []Card
	if installed == nil {
		cards = append(cards, Card{Kind: connect, Title: fmt.Sprintf("Connect %s Snap", name), Disabled: !s.FlaskDetected})
	}
	showReconnect := ShouldDisplayReconnect(installed)
	if showReconnect {
		cards = append(cards, Card{Kind: reconnect, Title: fmt.Sprintf("Reconnect %s Snap", name)})
	}
	action.Disabled = installed == nil
	action.FullWidth = s.FlaskDetected && installed != nil && !showReconnect
	return append(cards, action)
}

// String renders p as plain text, one card per line.
func (p Page) String() string {
	var b strings.Builder
	if p.Banner != "" {
		b.WriteString(p.Banner)
		b.WriteString("\n")
	}
	for _, c := range p.Cards {
		status := "enabled"
		if c.Disabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "[%s] %s (%s)\n", c.Kind, c.Title, status)
	}
	return b.String()
}

// Has reports whether a card of kind k is visible.
func (p Page) Has(k CardKind) bool {
	_, ok := p.Card(k)
	return ok
}

// Card returns the visible card of kind k.
func (p Page) Card(k CardKind) (Card, bool) {
	for _, c := range p.Cards {
		if c.Kind == k {
			return c, true
		}
	}
	return Card{}, false
}
