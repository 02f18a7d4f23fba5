package store

import "time"

// Optional is a value tagged with whether it was supplied. An unset Optional
// leaves its column untouched; a set one is written even when zero.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// ProductPatch is a partial product update.
type ProductPatch struct {
	Name        Optional[string]
	Description Optional[string]
	Price       Optional[float64]
	Stock       Optional[int]
	ImageURL    Optional[*string]
}

func (p ProductPatch) Empty() bool {
	return !p.Name.IsSet() && !p.Description.IsSet() && !p.Price.IsSet() &&
		!p.Stock.IsSet() && !p.ImageURL.IsSet()
}

// Assignments returns the column assignments for the set fields plus
// updated_at, which is always stamped.
func (p ProductPatch) Assignments(now time.Time) map[string]any {
	set := map[string]any{"updated_at": now}
	if v, ok := p.Name.Get(); ok {
		set["name"] = v
	}
	if v, ok := p.Description.Get(); ok {
		set["description"] = v
	}
	if v, ok := p.Price.Get(); ok {
		set["price"] = v
	}
	if v, ok := p.Stock.Get(); ok {
		set["stock"] = v
	}
	if v, ok := p.ImageURL.Get(); ok {
		set["image_url"] = v
	}
	return set
}

// UserPatch is a partial user update. Role is deliberately absent.
type UserPatch struct {
	Name         Optional[string]
	Phone        Optional[*string]
	Active       Optional[bool]
	PasswordHash Optional[string]
}

func (p UserPatch) Empty() bool {
	return !p.Name.IsSet() && !p.Phone.IsSet() && !p.Active.IsSet() && !p.PasswordHash.IsSet()
}

func (p UserPatch) Assignments(now time.Time) map[string]any {
	set := map[string]any{"updated_at": now}
	if v, ok := p.Name.Get(); ok {
		set["name"] = v
	}
	if v, ok := p.Phone.Get(); ok {
		set["phone"] = v
	}
	if v, ok := p.Active.Get(); ok {
		set["active"] = v
	}
	if v, ok := p.PasswordHash.Get(); ok {
		set["password_hash"] = v
	}
	return set
}
