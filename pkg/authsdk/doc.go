/*
Package authsdk provides a client SDK for the messenger authentication service.

# Overview

The service exposes a small JSON API under /auth. Every response is wrapped in
an envelope:

	{"isSuccess": true, "data": ..., "fieldErrors": []}
	{"isSuccess": false, "data": null, "apiError": {"statusCode": 409, "message": "..."}, "fieldErrors": [...]}

SDKClient unwraps the envelope and turns failures into *Error values carrying
the status code, message and field errors.

# SDKClient vs Session

  - SDKClient: account creation, login, code verification, health checks
  - Session: holds the session token returned by a completed login

	client := authsdk.NewSDKClient("https://auth.example.com")

	id, err := client.CreateAccount(ctx, authsdk.CreateAccountRequest{
		Email:    "alice@example.com",
		Password: "correct horse",
		Username: "alice",
		Birthday: "1990-04-01",
	})

# Two-factor Login

Accounts with tfaEnabled get an eight-digit code by email on every
interactive login:

	session, err := client.AuthenticateWithPassword(ctx, email, password)
	var vr *authsdk.VerificationRequiredError
	if errors.As(err, &vr) {
		session, err = client.AuthenticateWithCode(ctx, vr.UserID, codeFromEmail)
	}

	me, err := session.Me(ctx)

New accounts also receive a confirmation code. Submitting it with
AuthenticateWithCode confirms the account and returns a session; an account
whose code expires unconfirmed is deleted.

# Error Handling

	_, err := client.CreateAccount(ctx, req)
	if authsdk.IsStatus(err, http.StatusConflict) {
		var apiErr *authsdk.Error
		errors.As(err, &apiErr)
		if apiErr.HasField("email") {
			// email already registered
		}
	}

CreateAccountRequest.Validate mirrors the server-side checks so callers can
reject bad input before sending it.

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
