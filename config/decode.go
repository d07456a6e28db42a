package config

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DecodeHooks is the hook chain for viper unmarshalling. viper.DecodeHook
// replaces the default chain wholesale, so the standard duration and
// slice hooks must be restated alongside the decimal hook.
func DecodeHooks() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		DecimalDecodeHook(),
	))
}

// DecimalDecodeHook decodes YAML scalars into decimal.Decimal fields.
// Shared by the application config and the outcome table loader.
func DecimalDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(decimal.Decimal{}) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(v)
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		default:
			return nil, fmt.Errorf("cannot decode %T into decimal.Decimal", data)
		}
	}
}
