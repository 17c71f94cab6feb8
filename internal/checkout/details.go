package checkout

// Shipping is the delivery address collected at checkout.
type Shipping struct {
	Name    string `json:"name"    validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city"    validate:"required"`
	Zip     string `json:"zip"     validate:"required"`
}

// Card holds the payment fields. They are only checked for presence.
type Card struct {
	Holder string `json:"holder" validate:"required"`
	Number string `json:"number" validate:"required"`
	Expiry string `json:"expiry" validate:"required"`
	CVC    string `json:"cvc"    validate:"required"`
}

// Details is everything Submit needs.
type Details struct {
	Shipping Shipping `json:"shipping"`
	Card     Card     `json:"card"`
}

// last4 returns the trailing four characters of the card number for display.
func (c Card) last4() string {
	if len(c.Number) <= 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}
