package upstream

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/olienttech/portal/internal/domain/catalog"
	"github.com/olienttech/portal/internal/domain/order"
)

// Every successful upstream response wraps its payload in a {"data": ...}
// envelope. The decode helpers below unwrap it and map fields onto domain
// types, skipping anything they do not recognize.

// decodeData runs f over the envelope's data value.
func decodeData(body []byte, f func(d *jx.Decoder) error) error {
	d := jx.DecodeBytes(body)
	found := false
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		found = true
		return f(d)
	}); err != nil {
		return errors.Wrap(err, "decode envelope")
	}
	if !found {
		return errors.New("response has no data field")
	}
	return nil
}

func decodeSignin(body []byte) (*SigninResult, error) {
	var res SigninResult
	err := decodeData(body, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				res.ID, err = d.Str()
			case "name":
				res.Name, err = d.Str()
			case "token":
				res.Token, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, errors.New("signin response has no token")
	}
	return &res, nil
}

func decodeManufacturers(body []byte) ([]catalog.Manufacturer, error) {
	var out []catalog.Manufacturer
	err := decodeData(body, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "manufacturers" {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				var m catalog.Manufacturer
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "id":
						m.ID, err = d.Str()
					case "name":
						m.Name, err = d.Str()
					case "description":
						m.Description, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				out = append(out, m)
				return nil
			})
		})
	})
	return out, err
}

func decodeProducts(body []byte) ([]catalog.Product, error) {
	var out []catalog.Product
	err := decodeData(body, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "products" {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				out = append(out, p)
				return nil
			})
		})
	})
	return out, err
}

func decodeProduct(d *jx.Decoder) (catalog.Product, error) {
	var p catalog.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "stock":
			p.Stock, err = d.Int()
		case "orderQuantity":
			p.OrderQuantity, err = d.Int()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "categories":
			err = d.Arr(func(d *jx.Decoder) error {
				var c catalog.Category
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "id":
						c.ID, err = d.Str()
					case "name":
						c.Name, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				p.Categories = append(p.Categories, c)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

func decodeSummaries(body []byte) ([]order.Summary, error) {
	var out []order.Summary
	err := decodeData(body, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "orders" {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				var s order.Summary
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "id":
						s.ID, err = d.Str()
					case "shop":
						s.Shop, err = decodeParty(d)
					case "manufacturer":
						s.Manufacturer, err = decodeParty(d)
					case "totalPrice":
						s.TotalPrice, err = decodeDecimal(d)
					case "orderAt":
						s.OrderAt, err = decodeTime(d)
					case "approved":
						s.Approved, err = d.Bool()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				out = append(out, s)
				return nil
			})
		})
	})
	return out, err
}

func decodeDetail(body []byte) (*order.Detail, error) {
	var det order.Detail
	err := decodeData(body, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				det.ID, err = d.Str()
			case "shop":
				det.Shop, err = decodeParty(d)
			case "totalPrice":
				det.TotalPrice, err = decodeDecimal(d)
			case "orderAt":
				det.OrderAt, err = decodeTime(d)
			case "approved":
				det.Approved, err = d.Bool()
			case "items":
				err = d.Arr(func(d *jx.Decoder) error {
					item, err := decodeDetailItem(d)
					if err != nil {
						return err
					}
					det.Items = append(det.Items, item)
					return nil
				})
			default:
				err = d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &det, nil
}

func decodeDetailItem(d *jx.Decoder) (order.DetailItem, error) {
	var (
		item  order.DetailItem
		stock *int
		price *decimal.Decimal
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product":
			item.Product, err = decodeProduct(d)
		case "quantity":
			item.Quantity, err = d.Int()
		case "stock":
			var n int
			if n, err = d.Int(); err == nil {
				stock = &n
			}
		case "price":
			var dec decimal.Decimal
			if dec, err = decodeDecimal(d); err == nil {
				price = &dec
			}
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return item, err
	}
	// Stock and price ride alongside the product object; field order in the
	// payload must not matter.
	if stock != nil {
		item.Product.Stock = *stock
	}
	if price != nil {
		item.Product.Price = *price
	}
	return item, nil
}

func decodeParty(d *jx.Decoder) (order.Party, error) {
	var p order.Party
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

// decodeDecimal accepts both plain and string-quoted numbers.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	num, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	raw := strings.Trim(string(num), `"`)
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parse decimal")
	}
	return dec, nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse time")
	}
	return t, nil
}
