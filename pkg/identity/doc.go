// Package identity carries the authenticated caller through a request.
//
// The bearer middleware resolves the access token to a user and stores it:
//
//	ctx = identity.Set(ctx, identity.FromUser(user).WithRemoteIP(ip))
//
// Handlers read it back with identity.Get.
package identity
