package cmds

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pandodao/safe-pay/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeriver struct {
	core.AddressDeriver
}

func (fakeDeriver) Range(_ context.Context, userID string, start, end uint64) ([]*core.DerivedAddress, error) {
	var out []*core.DerivedAddress
	for i := start; i <= end; i++ {
		out = append(out, &core.DerivedAddress{Address: fmt.Sprintf("%s-%d", userID, i), Counter: i})
	}

	return out, nil
}

func TestAddressesPlain(t *testing.T) {
	c := &Cmd{Deriver: fakeDeriver{}}

	var out bytes.Buffer
	cmd := c.addressesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"u1", "2", "3", "--plain"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, []string{"u1-2", "u1-3"}, strings.Fields(out.String()))
}

func TestAddressesBadRange(t *testing.T) {
	c := &Cmd{Deriver: fakeDeriver{}}

	cmd := c.addressesCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"u1", "x", "3"})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
