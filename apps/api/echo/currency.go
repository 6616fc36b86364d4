package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
	"github.com/trezcool/summercamps/core/currency"
)

const preferenceMaxAge = 365 * 24 * time.Hour

func registerCurrencyAPI(g *echo.Group) {
	cg := g.Group("/currencies")
	cg.GET("", listCurrencies)
	cg.GET("/convert", convertCurrency)
	cg.GET("/detect", detectCurrency)
	cg.PUT("/preference", setCurrencyPreference)
}

// displayCurrency resolves `?currency=`, then the preference cookie, then Accept-Language.
func displayCurrency(ctx echo.Context) string {
	var saved string
	if cookie, err := ctx.Cookie(currency.PreferenceCookie); err == nil {
		saved = cookie.Value
	}
	return currency.Preferred(ctx.QueryParam("currency"), saved, ctx.Request().Header.Get("Accept-Language"))
}

type (
	CurrenciesResponse struct {
		Currencies []currency.Currency `json:"currencies"`
		Preferred  string              `json:"preferred"`
	}

	ConversionResponse struct {
		Amount    float64 `json:"amount"`
		From      string  `json:"from"`
		To        string  `json:"to"`
		Result    float64 `json:"result"`
		Formatted string  `json:"formatted"`
	}

	CurrencyPreference struct {
		Currency string `json:"currency"`
	}
)

func listCurrencies(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, CurrenciesResponse{Currencies: currency.Supported(), Preferred: displayCurrency(ctx)})
}

func convertCurrency(ctx echo.Context) error {
	amount, ok := queryFloat(ctx, "amount")
	if !ok {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "a number is required"})
	}
	from := strings.ToUpper(strings.TrimSpace(ctx.QueryParam("from")))
	if from == "" {
		from = currency.Default
	}
	to := strings.ToUpper(strings.TrimSpace(ctx.QueryParam("to")))
	if to == "" {
		to = displayCurrency(ctx)
	}

	result, err := currency.Convert(amount, from, to)
	if err != nil {
		if errors.Cause(err) == currency.ErrUnknownCurrency {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "converting amount")
	}
	result = currency.Round(result, to)
	return ctx.JSON(http.StatusOK, ConversionResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Result:    result,
		Formatted: currency.Format(result, to),
	})
}

func detectCurrency(ctx echo.Context) error {
	code := currency.DetectFromAcceptLanguage(ctx.Request().Header.Get("Accept-Language"))
	if locale := ctx.QueryParam("locale"); locale != "" {
		code = currency.DetectCurrency(locale)
	}
	return ctx.JSON(http.StatusOK, CurrencyPreference{Currency: code})
}

func setCurrencyPreference(ctx echo.Context) error {
	var data CurrencyPreference
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CurrencyPreference")
	}
	c, err := currency.Get(data.Currency)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "currency", Error: "unsupported currency"})
	}

	ctx.SetCookie(&http.Cookie{
		Name:     currency.PreferenceCookie,
		Value:    c.Code,
		Path:     "/",
		MaxAge:   int(preferenceMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.JSON(http.StatusOK, CurrencyPreference{Currency: c.Code})
}
