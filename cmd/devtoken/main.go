// Command devtoken prints an admin access token for local runs.  Tokens are
// signed with JWT_SECRET and live ACCESS_TOKEN_TTL_MIN minutes.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/iliyamo/retreat-allocation/internal/config"
	"github.com/iliyamo/retreat-allocation/internal/middleware"
	"github.com/iliyamo/retreat-allocation/internal/utils"
)

func main() {
	adminID := flag.Uint64("admin", 1, "administrator id (token subject)")
	role := flag.String("role", middleware.RoleAdmin, "role claim")
	flag.Parse()

	cfg := config.Load()
	tok, err := utils.NewAccessToken(cfg.JWTSecret, *adminID, *role, cfg.AccessTTLMin)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	log.Printf("expires %s", tok.Exp.Format("2006-01-02 15:04:05 MST"))
}
