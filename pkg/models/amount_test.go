package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	testCases := []struct {
		name     string
		amount   string
		decimals int
		expected string
		wantErr  bool
	}{
		{name: "whole ether", amount: "1", decimals: 18, expected: "1000000000000000000"},
		{name: "fractional ether", amount: "1.5", decimals: 18, expected: "1500000000000000000"},
		{name: "usdc with six decimals", amount: "12.25", decimals: 6, expected: "12250000"},
		{name: "smallest unit", amount: "0.000001", decimals: 6, expected: "1"},
		{name: "too many decimal places", amount: "0.0000001", decimals: 6, wantErr: true},
		{name: "zero amount", amount: "0", decimals: 18, wantErr: true},
		{name: "negative amount", amount: "-1", decimals: 18, wantErr: true},
		{name: "not a number", amount: "one", decimals: 18, wantErr: true},
		{name: "empty string", amount: "", decimals: 18, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToBaseUnits(tc.amount, tc.decimals)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got.String())
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	v, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, "1.5", FromBaseUnits(v, 18))
	assert.Equal(t, "0.000001", FromBaseUnits(big.NewInt(1), 6))
}

func TestRoutePlanMultiLeg(t *testing.T) {
	same := RoutePlan{Steps: []RouteStep{{ChainID: 137}, {ChainID: 137}}}
	assert.False(t, same.MultiLeg())

	cross := RoutePlan{Steps: []RouteStep{{ChainID: 137, ToChainID: 8453}, {ChainID: 8453}}}
	assert.True(t, cross.MultiLeg())

	single := RoutePlan{Steps: []RouteStep{{ChainID: 137}}}
	assert.False(t, single.MultiLeg())
}

func TestRouteStepCrossChain(t *testing.T) {
	assert.True(t, RouteStep{ChainID: 137, ToChainID: 8453}.CrossChain())
	assert.False(t, RouteStep{ChainID: 137, ToChainID: 137}.CrossChain())
	assert.False(t, RouteStep{ChainID: 137}.CrossChain())
}
