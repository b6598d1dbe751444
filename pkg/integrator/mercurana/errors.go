package mercurana

import (
	errorsmod "cosmossdk.io/errors"
)

const codespace = "mercurana"

// Configuration errors reported by Part1. While one of these is set the
// integrator refuses to step.
var (
	ErrNmaxshells      = errorsmod.Register(codespace, 2, "Nmaxshells needs to be larger than 0")
	ErrNmaxshellsForN0 = errorsmod.Register(codespace, 3, "Nmaxshells>=2 is required if n0 is greater than 0")
	ErrNmaxshellsForN1 = errorsmod.Register(codespace, 4, "Nmaxshells>=3 is required if n1 is greater than 0")
	ErrKappa           = errorsmod.Register(codespace, 5, "kappa>0 is required if Nmaxshells>1")
)
