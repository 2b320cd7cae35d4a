// Package token issues and resolves the bearer tokens clients present on
// every authenticated request.
//
// Tokens are HS256 JWTs signed with the server master secret and carry the
// user id in an "id" claim:
//
//	svc, _ := token.NewService(secret, cfg.AccessTokenTTL(), users)
//	tok, _ := svc.Issue(user.ID)
//	user := svc.Resolve(ctx, token.FromHeader(r.Header.Get("Authorization")))
//
// Resolve never fails loudly: any invalid, expired or orphaned token simply
// resolves to no user.
package token
